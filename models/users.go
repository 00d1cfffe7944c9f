package models

type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Nickname    string `gorm:"size:100;uniqueIndex;not null" json:"nickname"`
	FirstName   string `gorm:"size:100;not null" json:"first_name"`
	LastName    string `gorm:"size:100;not null" json:"last_name"`
	Email       string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string `gorm:"size:255;not null" json:"-"`
	IsSuperuser bool   `gorm:"not null;default:false" json:"is_superuser"`
	Disabled    bool   `gorm:"not null;default:false;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// PublicUser - поля пользователя, которые можно отдавать наружу
type PublicUser struct {
	ID          int64  `json:"id"`
	Nickname    string `json:"nickname"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSuperuser bool   `json:"is_superuser"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Nickname:    u.Nickname,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
	}
}
