package models

import "time"

const (
	TextTypeText     = "text"
	TextTypeMarkdown = "markdown"
	TextTypeLatex    = "latex"

	QuestionTypeInput    = "input"
	QuestionTypeMultiple = "multiple"

	// MultipleChoiceOptions is the exact option count of a multiple question.
	MultipleChoiceOptions = 4
)

type Question struct {
	Base
	Text        string   `json:"text" gorm:"type:text;not null"`
	TextType    string   `json:"textType" gorm:"size:16;not null;default:text"`
	ImageUUID   string   `json:"imageUuid,omitempty" gorm:"size:36"`
	ImageFiles  []string `json:"imageFiles,omitempty" gorm:"type:text;serializer:json"`
	Type        string   `json:"type" gorm:"size:16;not null"`
	Options     []string `json:"options,omitempty" gorm:"type:text;serializer:json"`
	Answer      string   `json:"answer" gorm:"type:text;not null"`
	Hint        string   `json:"hint" gorm:"type:text"`
	Explanation string   `json:"explanation" gorm:"type:text"`

	CreatorID string  `json:"creatorId" gorm:"size:36;not null;index"`
	Creator   *User   `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Review    *Review `json:"review,omitempty" gorm:"foreignKey:QuestionID"`

	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	ClassID      string      `json:"classId" gorm:"size:36;not null;index"`
	Class        *Class      `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	SubjectID    string      `json:"subjectId" gorm:"size:36;not null;index"`
	Subject      *Subject    `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	TopicID      string      `json:"topicId" gorm:"size:36;not null;index"`
	Topic        *Topic      `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	SubtopicID   string      `json:"subtopicId" gorm:"size:36;not null;index"`
	Subtopic     *Subtopic   `json:"subtopic,omitempty" gorm:"foreignKey:SubtopicID"`
	LevelID      string      `json:"levelId" gorm:"size:36;not null;index"`
	Level        *Level      `json:"level,omitempty" gorm:"foreignKey:LevelID"`
}

// Review is created unreviewed together with its Question. ReviewedAt being
// set is what makes a question "reviewed"; Approved is the verdict.
type Review struct {
	Base
	QuestionID   string     `json:"questionId" gorm:"size:36;not null;uniqueIndex"`
	Approved     bool       `json:"approved" gorm:"not null;default:false"`
	Comment      string     `json:"comment" gorm:"type:text"`
	Rating       int        `json:"rating" gorm:"not null;default:0;check:rating >= 0 AND rating <= 5"`
	ReviewedByID *string    `json:"reviewedById" gorm:"size:36"`
	ReviewedBy   *User      `json:"reviewedBy,omitempty" gorm:"foreignKey:ReviewedByID"`
	ReviewedAt   *time.Time `json:"reviewedAt"`
}
