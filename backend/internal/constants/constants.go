package constants

// Object attribute keys
const (
	// ObjectIDKey holds the caller supplied business id
	ObjectIDKey = "object.id"
	// ObjectTypeKey holds the type tag of the node
	ObjectTypeKey = "object.type"
	// ObjectNameKey holds the display name
	ObjectNameKey = "object.name"
)

// Person attribute keys
const (
	PersonDateOfBirthKey = "person.date_of_birth"
	PersonGenderKey      = "person.gender"
)

// Marriage attribute keys
const (
	MarriageStartDateKey = "marriage.start_date"
	MarriageEndDateKey   = "marriage.end_date"
)

// Object type tags
const (
	TypeObject           = "Object"
	TypeUser             = "User"
	TypePerson           = "Person"
	TypeCompoundRelation = "CompoundRelation"
	TypeDatedMarriage    = "DatedMarriage"
)

// Relation type tags, stored in the edge label
const (
	TypeRelation    = "Relation"
	TypeParentChild = "ParentChild"
	TypeMarriage    = "Marriage"
)

// Genders accepted by the API
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// DateLayout is the layout of every date attribute
const DateLayout = "2006-01-02"
