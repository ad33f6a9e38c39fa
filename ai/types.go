package ai

// EntityTypes lists the entity categories extractors may assign.
var EntityTypes = []string{
	"person",
	"organization",
	"location",
	"event",
	"object",
	"concept",
	"drug",
	"disease",
	"condition",
	"date",
	"document",
	"occupation",
}

// IsEntityType reports whether t is one of EntityTypes.
func IsEntityType(t string) bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}
