package domain

// Department is one of the fixed work units tasks and employees belong to.
type Department string

const (
	DepartmentProduction  Department = "production"
	DepartmentStrategy    Department = "strategy"
	DepartmentVideo       Department = "video"
	DepartmentGraphics    Department = "graphics"
	DepartmentSocialMedia Department = "social-media"
)

// Departments lists every department in display order.
var Departments = []Department{
	DepartmentProduction,
	DepartmentStrategy,
	DepartmentVideo,
	DepartmentGraphics,
	DepartmentSocialMedia,
}

// Valid reports whether d is a known department.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// ParseDepartment validates a raw department value.
func ParseDepartment(raw string) (Department, bool) {
	d := Department(raw)
	return d, d.Valid()
}
