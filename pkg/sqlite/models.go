package sqlite

var migrateModels = []any{
	&Member{},
	&Capability{},
	&TemplateRole{},
	&SpecialMass{},
	&Assignment{},
}

type Member struct {
	Ministry    string `gorm:"primaryKey"`
	ID          string `gorm:"primaryKey"`
	FullName    string
	FirstName   string
	LastName    string
	Sex         string
	Flexibility string
	Status      string
}

func (Member) TableName() string {
	return "member"
}

type Capability struct {
	Ministry string `gorm:"primaryKey"`
	MemberID string `gorm:"primaryKey"`
	Role     string `gorm:"primaryKey"`
	Enabled  int
}

func (Capability) TableName() string {
	return "capability"
}

type TemplateRole struct {
	Ministry   string `gorm:"primaryKey"`
	TemplateID string `gorm:"primaryKey"`
	Role       string `gorm:"primaryKey"`
	Count      int
}

func (TemplateRole) TableName() string {
	return "mass_template_role"
}

// SpecialMass dates are stored as YYYY-MM-DD text so they sort and compare lexically
type SpecialMass struct {
	Ministry   string `gorm:"primaryKey"`
	Date       string `gorm:"primaryKey"`
	MassLabel  string `gorm:"primaryKey"`
	TemplateID string
}

func (SpecialMass) TableName() string {
	return "special_mass"
}

type Assignment struct {
	ID        string `gorm:"primaryKey"`
	Ministry  string `gorm:"uniqueIndex:idx_assignment_slot;index:idx_assignment_date"`
	Date      string `gorm:"uniqueIndex:idx_assignment_slot;index:idx_assignment_date"`
	MassLabel string `gorm:"uniqueIndex:idx_assignment_slot"`
	Role      string `gorm:"uniqueIndex:idx_assignment_slot"`
	Slot      int    `gorm:"uniqueIndex:idx_assignment_slot"`
	MemberID  string
}

func (Assignment) TableName() string {
	return "assignment"
}
