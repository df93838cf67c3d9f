package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abhisek/sldscreen/internal/profiles"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, body{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339Nano),
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}

	uid, err := s.profiles.Register(r.Context(), profiles.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeOK(w, http.StatusCreated, body{
		"uid":     uid,
		"message": "User registered successfully",
	})
}

type childRequest struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Grade       string `json:"grade"`
	DateOfBirth string `json:"dateOfBirth"`
}

func (s *Server) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}

	c, err := s.profiles.AddChild(r.Context(), caller(r.Context()).UID, profiles.ChildInput{
		Name:        req.Name,
		Age:         req.Age,
		Grade:       req.Grade,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeOK(w, http.StatusCreated, body{
		"childId": c.ID,
		"message": "Child profile created successfully",
	})
}

func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	kids, err := s.profiles.Children(r.Context(), caller(r.Context()).UID)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeOK(w, http.StatusOK, body{"children": kids})
}

type createAssessmentRequest struct {
	ChildID string `json:"childId"`
}

func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}

	a, err := s.assessments.Create(r.Context(), caller(r.Context()).UID, req.ChildID)
	if err != nil {
		s.fail(w, r, err, "child")
		return
	}
	writeOK(w, http.StatusCreated, body{"assessmentId": a.ID})
}

type submitRequest struct {
	Responses json.RawMessage `json:"responses"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}

	who, a, err := s.assessments.Submit(r.Context(), caller(r.Context()).UID, r.PathValue("id"), req.Responses)
	if err != nil {
		s.fail(w, r, err, "assessment")
		return
	}
	writeOK(w, http.StatusOK, body{
		"message": fmt.Sprintf("%s responses submitted successfully", capitalize(string(who))),
		"status":  a.Status,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	res, err := s.assessments.Analyze(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "assessment")
		return
	}
	writeOK(w, http.StatusOK, body{"results": res})
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.assessments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "assessment")
		return
	}
	writeOK(w, http.StatusOK, body{"assessment": a})
}

func (s *Server) handleChildAssessments(w http.ResponseWriter, r *http.Request) {
	list, err := s.assessments.ListForChild(r.Context(), r.PathValue("childId"))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeOK(w, http.StatusOK, body{"assessments": list})
}
