package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Skill is an installed capability an agent can enable/disable, per spec
// §6's skills endpoints.
type Skill struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Enabled bool   `json:"enabled"`
}

// SkillRegistry is the skills persistence boundary.
type SkillRegistry interface {
	List() []Skill
	Install(name, source string) (Skill, error)
	SetEnabled(name string, enabled bool) (Skill, error)
	Delete(name string) bool
}

// MemorySkillRegistry is an in-process SkillRegistry.
type MemorySkillRegistry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewMemorySkillRegistry constructs an empty in-process registry.
func NewMemorySkillRegistry() *MemorySkillRegistry {
	return &MemorySkillRegistry{skills: map[string]Skill{}}
}

func (r *MemorySkillRegistry) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	return out
}

func (r *MemorySkillRegistry) Install(name, source string) (Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Skill{Name: name, Source: source, Enabled: true}
	r.skills[name] = s
	return s, nil
}

func (r *MemorySkillRegistry) SetEnabled(name string, enabled bool) (Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.skills[name]
	if !ok {
		return Skill{}, errSkillNotFound(name)
	}
	s.Enabled = enabled
	r.skills[name] = s
	return s, nil
}

func (r *MemorySkillRegistry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.skills[name]; !ok {
		return false
	}
	delete(r.skills, name)
	return true
}

type skillNotFoundError string

func (e skillNotFoundError) Error() string { return "skill not found: " + string(e) }

func errSkillNotFound(name string) error { return skillNotFoundError(name) }

// InstallSkillRequest is POST /api/skills/install's body.
type InstallSkillRequest struct {
	Source string `json:"source" binding:"required"`
	Name   string `json:"name"`
}

func (s *Server) handleSkillsList(c *gin.Context) {
	c.JSON(http.StatusOK, s.skills.List())
}

func (s *Server) handleSkillInstall(c *gin.Context) {
	var req InstallSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := req.Name
	if name == "" {
		name = req.Source
	}
	skill, err := s.skills.Install(name, req.Source)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

func (s *Server) handleSkillEnable(c *gin.Context) {
	s.setSkillEnabled(c, true)
}

func (s *Server) handleSkillDisable(c *gin.Context) {
	s.setSkillEnabled(c, false)
}

func (s *Server) setSkillEnabled(c *gin.Context, enabled bool) {
	skill, err := s.skills.SetEnabled(c.Param("name"), enabled)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, skill)
}

func (s *Server) handleSkillDelete(c *gin.Context) {
	if !s.skills.Delete(c.Param("name")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "skill not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
