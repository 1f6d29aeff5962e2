package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	"famgraph/backend/internal/model"
	apperrors "famgraph/backend/pkg/errors"
)

// Handler serves the people, relation and marriage endpoints
type Handler struct {
	mapper *model.Mapper
	logger *zap.Logger
}

// NewHandler creates a handler over mapper
func NewHandler(mapper *model.Mapper, log *zap.Logger) *Handler {
	return &Handler{mapper: mapper, logger: log}
}

// RegisterRoutes mounts the endpoints on r. Business ids may contain
// slashes, so single-person routes take the id as a catch-all.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/people", h.listPeople)
	r.POST("/people", h.createPerson)
	r.GET("/people/search", h.searchPeople)
	r.GET("/people/id/*id", h.viewPerson)
	r.PATCH("/people/id/*id", h.updatePerson)
	r.DELETE("/people/id/*id", h.deletePerson)
	r.POST("/relations/parent-child", h.relateParentChild)
	r.POST("/marriages", h.createMarriage)
}

type createPersonRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" binding:"required"`
	DateOfBirth string           `json:"date_of_birth" binding:"isodate"`
	Gender      string           `json:"gender" binding:"gender"`
	Attributes  graph.Attributes `json:"attributes"`
}

type updatePersonRequest struct {
	Name        string           `json:"name"`
	DateOfBirth string           `json:"date_of_birth" binding:"isodate"`
	Gender      string           `json:"gender" binding:"gender"`
	Attributes  graph.Attributes `json:"attributes"`
}

type parentChildRequest struct {
	ParentID string `json:"parent_id" binding:"required"`
	ChildID  string `json:"child_id" binding:"required"`
}

type marriageRequest struct {
	ID           string   `json:"id" binding:"required"`
	Name         string   `json:"name"`
	StartDate    string   `json:"start_date" binding:"isodate"`
	EndDate      string   `json:"end_date" binding:"isodate"`
	Participants []string `json:"participants" binding:"required,min=1,unique,dive,required"`
}

type personRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type personResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	DateOfBirth string           `json:"date_of_birth,omitempty"`
	Gender      string           `json:"gender,omitempty"`
	Attributes  graph.Attributes `json:"attributes"`
	Parents     []personRef      `json:"parents,omitempty"`
	Children    []personRef      `json:"children,omitempty"`
	Spouses     []personRef      `json:"spouses,omitempty"`
}

type marriageResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	StartDate    string      `json:"start_date,omitempty"`
	EndDate      string      `json:"end_date,omitempty"`
	Participants []personRef `json:"participants"`
}

func (h *Handler) listPeople(c *gin.Context) {
	people, err := model.Collect(h.mapper.People().All())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": summaries(people)})
}

func (h *Handler) createPerson(c *gin.Context) {
	var req createPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := req.ID
	if id == "" {
		id = model.CreateID(req.Name)
	}
	attrs := req.Attributes.Merge(model.PersonAttributes(req.DateOfBirth, req.Gender))
	person, err := h.mapper.People().Create(id, req.Name, attrs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.Info("Person created", zap.String("id", person.ID()), zap.Stringer("node_id", person.NodeID()))
	c.JSON(http.StatusCreated, describe(person))
}

// searchPeople takes q, a JSON object of attribute values that must all match
func (h *Handler) searchPeople(c *gin.Context) {
	var query graph.Attributes
	if err := json.Unmarshal([]byte(c.Query("q")), &query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q must be a JSON object of attribute values"})
		return
	}

	people, err := model.Collect(h.mapper.People().ByAttr(query))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Debug("Person search", zap.Int("results", len(people)))
	c.JSON(http.StatusOK, gin.H{"people": summaries(people)})
}

func (h *Handler) viewPerson(c *gin.Context) {
	person, err := h.lookup(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := describe(person)
	parents, err := person.Parents()
	if err != nil {
		h.writeError(c, err)
		return
	}
	children, err := person.Children()
	if err != nil {
		h.writeError(c, err)
		return
	}
	spouses, err := person.Spouses()
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp.Parents = summaries(parents)
	resp.Children = summaries(children)
	resp.Spouses = summaries(spouses)

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) updatePerson(c *gin.Context) {
	var req updatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	person, err := h.lookup(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	attrs := req.Attributes.Merge(model.PersonAttributes(req.DateOfBirth, req.Gender))
	if req.Name != "" {
		attrs[constants.ObjectNameKey] = req.Name
	}
	if _, err := person.Update(attrs); err != nil {
		h.writeError(c, err)
		return
	}

	updated, err := h.mapper.People().Get(person.NodeID())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, describe(updated))
}

func (h *Handler) deletePerson(c *gin.Context) {
	person, err := h.lookup(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if err := h.mapper.People().Delete(person); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) relateParentChild(c *gin.Context) {
	var req parentChildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parent, err := h.mapper.People().ByID(req.ParentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	child, err := h.mapper.People().ByID(req.ChildID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	rel, err := parent.AddChild(child)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"label":  rel.Label(),
		"parent": personRef{ID: parent.ID(), Name: parent.Name()},
		"child":  personRef{ID: child.ID(), Name: child.Name()},
	})
}

func (h *Handler) createMarriage(c *gin.Context) {
	var req marriageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Resolve everyone before writing so an unknown participant leaves no
	// half-built marriage behind. Participants are unique per binding.
	participants := make([]*model.Person, 0, len(req.Participants))
	for _, id := range req.Participants {
		p, err := h.mapper.People().ByID(id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		participants = append(participants, p)
	}

	union, err := h.mapper.CreateMarriage(req.ID, req.Name, model.MarriageAttributes(req.StartDate, req.EndDate), participants...)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, marriageResponse{
		ID:           union.ID(),
		Name:         union.Name(),
		StartDate:    union.StartDate(),
		EndDate:      union.EndDate(),
		Participants: summaries(participants),
	})
}

// lookup resolves a catch-all id. The raw value keeps gin's leading slash,
// so "/p/1" is tried as given and "abc" is found by trimming it.
func (h *Handler) lookup(raw string) (*model.Person, error) {
	person, err := h.mapper.People().ByID(raw)
	if err == nil || !apperrors.IsNotFound(err) {
		return person, err
	}
	trimmed := strings.TrimPrefix(raw, "/")
	if trimmed == raw || trimmed == "" {
		return nil, err
	}
	return h.mapper.People().ByID(trimmed)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsDuplicate(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsInvalidInput(err), apperrors.IsInvariantViolation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func describe(p *model.Person) personResponse {
	return personResponse{
		ID:          p.ID(),
		Name:        p.Name(),
		Type:        p.Type(),
		DateOfBirth: p.DateOfBirth(),
		Gender:      p.Gender(),
		Attributes:  p.Attrs(),
	}
}

func summaries(people []*model.Person) []personRef {
	refs := make([]personRef, 0, len(people))
	for _, p := range people {
		refs = append(refs, personRef{ID: p.ID(), Name: p.Name()})
	}
	return refs
}
