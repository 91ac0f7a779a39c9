package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Weekday is a published availability day, e.g. "Monday".
type Weekday string

var validWeekdays = map[Weekday]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

func (w Weekday) IsValid() bool {
	return validWeekdays[w]
}

type Doctor struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Name         string `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Phone        string `gorm:"column:phone;type:varchar(30)" json:"phone,omitempty"`

	Specialization  string  `gorm:"column:specialization;type:varchar(100);not null;index" json:"specialization"`
	ExperienceYears int     `gorm:"column:experience_years;not null" json:"experienceYears"`
	Fees            float64 `gorm:"column:fees;not null" json:"fees"`

	AvailableDays      []Weekday `gorm:"column:available_days;serializer:json" json:"availableDays"`
	AvailableTimeSlots []string  `gorm:"column:available_time_slots;serializer:json" json:"availableTimeSlots"`

	Address   string   `gorm:"column:address;type:text" json:"address,omitempty"`
	Latitude  *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	Rating     float64 `gorm:"column:rating;default:0" json:"rating"`
	NumReviews int     `gorm:"column:num_reviews;default:0" json:"numReviews"`
}

func (Doctor) TableName() string {
	return "directory.doctors"
}

// PublishesSlot reports whether the slot token appears in the doctor's
// published slot set.
func (d *Doctor) PublishesSlot(slot string) bool {
	for _, s := range d.AvailableTimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

type RegisterDoctorCommand struct {
	Name               string
	Email              string
	Password           string
	Phone              string
	Specialization     string
	ExperienceYears    int
	Fees               float64
	AvailableDays      []Weekday
	AvailableTimeSlots []string
	Address            string
}

type ListDoctorsQuery struct {
	Specialization string
	Page           int
	Limit          int
}

type PagedDoctors struct {
	Doctors    []*Doctor
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
