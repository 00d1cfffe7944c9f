package models

import "time"

// FriendEdge - направленная связь "first добавил second в друзья".
// Взаимная дружба не хранится: она есть, когда существуют обе связи.
type FriendEdge struct {
	FirstID   int64     `gorm:"primaryKey;autoIncrement:false" json:"first_id"`
	SecondID  int64     `gorm:"primaryKey;autoIncrement:false;index" json:"second_id"`
	CreatedAt time.Time `json:"created_at"`

	First  *User `gorm:"foreignKey:FirstID;constraint:OnDelete:CASCADE" json:"-"`
	Second *User `gorm:"foreignKey:SecondID;constraint:OnDelete:CASCADE" json:"-"`
}

func (FriendEdge) TableName() string {
	return "users_friends_association"
}
