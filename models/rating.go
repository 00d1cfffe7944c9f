package models

const (
	MinRatingValue = -1000
	MaxRatingValue = 1000
)

// Rating - оценка, которую creator поставил receiver
type Rating struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID   int64  `gorm:"uniqueIndex:ratings_creator_receiver_key;not null" json:"creator_id"`
	ReceiverID  int64  `gorm:"uniqueIndex:ratings_creator_receiver_key;not null" json:"receiver_id"`
	RatingValue int    `gorm:"not null;check:rating_value >= -1000 AND rating_value <= 1000" json:"rating_value"`
	Improve     string `gorm:"size:100" json:"improve"`

	Creator  *User `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Receiver *User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Rating) TableName() string {
	return "ratings"
}

type RatingView struct {
	RatingValue int    `json:"rating_value"`
	Improve     string `json:"improve"`
}
