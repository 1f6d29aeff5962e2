package model

import (
	"fmt"

	"go.uber.org/zap"

	"famgraph/backend/internal/constants"
	"famgraph/backend/internal/graph"
	apperrors "famgraph/backend/pkg/errors"
)

// ============================================================================
// Kinds
// ============================================================================

var (
	UserKind = NewObjectKind(constants.TypeUser, func(o Object) *User {
		return &User{Object: o}
	})
	PersonKind = NewObjectKind(constants.TypePerson, func(o Object) *Person {
		return &Person{Object: o}
	})
	CompoundRelationKind = NewObjectKind(constants.TypeCompoundRelation, func(o Object) *CompoundRelation {
		return &CompoundRelation{Object: o}
	})
	DatedMarriageKind = NewObjectKind(constants.TypeDatedMarriage, func(o Object) *DatedMarriage {
		return &DatedMarriage{CompoundRelation: CompoundRelation{Object: o}}
	})

	ParentChildKind = NewRelationKind(constants.TypeParentChild, func(r Relation) *ParentChild {
		return &ParentChild{Relation: r}
	}).Between(constants.TypePerson, constants.TypePerson)
	MarriageKind = NewRelationKind(constants.TypeMarriage, func(r Relation) *Marriage {
		return &Marriage{Relation: r}
	}).Between(constants.TypePerson, constants.TypeDatedMarriage)
)

// ============================================================================
// Objects
// ============================================================================

// User is an account holder
type User struct {
	Object
}

// Person is an individual in the family tree
type Person struct {
	Object
}

// PersonAttributes builds the optional Person attributes, skipping empty values
func PersonAttributes(dateOfBirth, gender string) graph.Attributes {
	attrs := graph.Attributes{}
	if dateOfBirth != "" {
		attrs[constants.PersonDateOfBirthKey] = dateOfBirth
	}
	if gender != "" {
		attrs[constants.PersonGenderKey] = gender
	}
	return attrs
}

// DateOfBirth returns person.date_of_birth, empty when unknown
func (p *Person) DateOfBirth() string {
	return p.attrs.StringOr(constants.PersonDateOfBirthKey, "")
}

// Gender returns person.gender, empty when unknown
func (p *Person) Gender() string {
	return p.attrs.StringOr(constants.PersonGenderKey, "")
}

// AddParent records parent as a parent of p
func (p *Person) AddParent(parent *Person) (*ParentChild, error) {
	return p.mapper.ParentChildren().Relate(parent, p, nil)
}

// AddChild records child as a child of p
func (p *Person) AddChild(child *Person) (*ParentChild, error) {
	return p.mapper.ParentChildren().Relate(p, child, nil)
}

// ParentRelations returns the ParentChild relations pointing at p
func (p *Person) ParentRelations() ([]*ParentChild, error) {
	return RelatedIncidents(p, ParentChildKind)
}

// ChildRelations returns the ParentChild relations leaving p
func (p *Person) ChildRelations() ([]*ParentChild, error) {
	return RelatedNeighbours(p, ParentChildKind)
}

// Parents returns p's parents
func (p *Person) Parents() ([]*Person, error) {
	rels, err := p.ParentRelations()
	if err != nil {
		return nil, err
	}
	return mapRelations(rels, (*ParentChild).Parent)
}

// Children returns p's children
func (p *Person) Children() ([]*Person, error) {
	rels, err := p.ChildRelations()
	if err != nil {
		return nil, err
	}
	return mapRelations(rels, (*ParentChild).Child)
}

// Marry links p to a dated marriage as a participant
func (p *Person) Marry(union *DatedMarriage) (*Marriage, error) {
	return p.mapper.Marriages().Relate(p, union, nil)
}

// Marriages returns the Marriage relations leaving p
func (p *Person) Marriages() ([]*Marriage, error) {
	return RelatedNeighbours(p, MarriageKind)
}

// Spouses returns the other participants of every marriage of p
func (p *Person) Spouses() ([]*Person, error) {
	marriages, err := p.Marriages()
	if err != nil {
		return nil, err
	}

	var spouses []*Person
	seen := map[string]struct{}{}
	for _, m := range marriages {
		union, err := m.Union()
		if err != nil {
			return nil, err
		}
		participants, err := union.Participants()
		if err != nil {
			return nil, err
		}
		for _, other := range participants {
			if other.NodeID() == p.NodeID() {
				continue
			}
			if _, dup := seen[other.NodeID().String()]; dup {
				continue
			}
			seen[other.NodeID().String()] = struct{}{}
			spouses = append(spouses, other)
		}
	}
	return spouses, nil
}

// CompoundRelation is a relation promoted to a node so that it can itself
// take part in relations
type CompoundRelation struct {
	Object
}

// DatedMarriage is a marriage node; each participant points at it with a
// Marriage edge
type DatedMarriage struct {
	CompoundRelation
}

// MarriageAttributes builds the optional marriage dates, skipping empty values
func MarriageAttributes(startDate, endDate string) graph.Attributes {
	attrs := graph.Attributes{}
	if startDate != "" {
		attrs[constants.MarriageStartDateKey] = startDate
	}
	if endDate != "" {
		attrs[constants.MarriageEndDateKey] = endDate
	}
	return attrs
}

// StartDate returns marriage.start_date, empty when unknown
func (d *DatedMarriage) StartDate() string {
	return d.attrs.StringOr(constants.MarriageStartDateKey, "")
}

// EndDate returns marriage.end_date, empty when the marriage is ongoing or unknown
func (d *DatedMarriage) EndDate() string {
	return d.attrs.StringOr(constants.MarriageEndDateKey, "")
}

// AddParticipant links person to the marriage
func (d *DatedMarriage) AddParticipant(person *Person) (*Marriage, error) {
	return d.mapper.Marriages().Relate(person, d, nil)
}

// CreateMarriage stores a dated marriage together with its participants.
// Either the node and every participant edge are written or nothing is: a
// person listed twice is rejected up front, and the node is deleted again
// when a participant cannot be linked.
func (m *Mapper) CreateMarriage(businessID, name string, attrs graph.Attributes, participants ...*Person) (*DatedMarriage, error) {
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		key := p.NodeID().String()
		if _, dup := seen[key]; dup {
			return nil, apperrors.NewInvalidAttribute("participants", fmt.Sprintf("%s listed more than once", p.ID()))
		}
		seen[key] = struct{}{}
	}

	union, err := m.DatedMarriages().Create(businessID, name, attrs)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if _, err := union.AddParticipant(p); err != nil {
			// Deleting the node drops the participant edges added so far.
			if delErr := m.DatedMarriages().Delete(union); delErr != nil {
				m.logger.Error("Failed to roll back marriage",
					zap.String("id", businessID),
					zap.Error(delErr),
				)
			}
			return nil, fmt.Errorf("failed to add %s to marriage %s: %w", p.ID(), businessID, err)
		}
	}
	return union, nil
}

// Participants returns the people linked to the marriage
func (d *DatedMarriage) Participants() ([]*Person, error) {
	rels, err := RelatedIncidents(d, MarriageKind)
	if err != nil {
		return nil, err
	}
	return mapRelations(rels, (*Marriage).Person)
}

// ============================================================================
// Relations
// ============================================================================

// ParentChild points from a parent to a child
type ParentChild struct {
	Relation
}

// Parent returns the subject of the relation
func (r *ParentChild) Parent() (*Person, error) {
	return r.mapper.People().Get(r.subject)
}

// Child returns the object of the relation
func (r *ParentChild) Child() (*Person, error) {
	return r.mapper.People().Get(r.object)
}

// Marriage points from a participant to a DatedMarriage
type Marriage struct {
	Relation
}

// Person returns the participant
func (r *Marriage) Person() (*Person, error) {
	return r.mapper.People().Get(r.subject)
}

// Union returns the marriage node
func (r *Marriage) Union() (*DatedMarriage, error) {
	return r.mapper.DatedMarriages().Get(r.object)
}

func mapRelations[R any](rels []R, resolve func(R) (*Person, error)) ([]*Person, error) {
	people := make([]*Person, 0, len(rels))
	for _, rel := range rels {
		person, err := resolve(rel)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, nil
}
