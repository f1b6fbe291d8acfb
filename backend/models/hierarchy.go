package models

// Slugs are unique among live siblings: the partial indexes ignore
// soft-deleted rows so a name can be reused after deletion.

type Enterprise struct {
	Base
	Name    string  `json:"name" gorm:"size:255;not null"`
	Slug    string  `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_enterprise_slug,where:deleted_at IS NULL"`
	Email   string  `json:"email" gorm:"size:255;not null"`
	Avatar  string  `json:"avatar" gorm:"size:512"`
	Classes []Class `json:"classes,omitempty" gorm:"foreignKey:EnterpriseID"`
}

type Class struct {
	Base
	Name         string      `json:"name" gorm:"size:255;not null"`
	Slug         string      `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_class_enterprise_slug,priority:2,where:deleted_at IS NULL"`
	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index;uniqueIndex:idx_class_enterprise_slug,priority:1"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	Subjects     []Subject   `json:"subjects,omitempty" gorm:"foreignKey:ClassID"`
}

type Subject struct {
	Base
	Name         string      `json:"name" gorm:"size:255;not null"`
	Slug         string      `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_subject_class_slug,priority:2,where:deleted_at IS NULL"`
	ClassID      string      `json:"classId" gorm:"size:36;not null;index;uniqueIndex:idx_subject_class_slug,priority:1"`
	Class        *Class      `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	Topics       []Topic     `json:"topics,omitempty" gorm:"foreignKey:SubjectID"`
}

type Topic struct {
	Base
	Name         string      `json:"name" gorm:"size:255;not null"`
	Slug         string      `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_topic_subject_slug,priority:2,where:deleted_at IS NULL"`
	SubjectID    string      `json:"subjectId" gorm:"size:36;not null;index;uniqueIndex:idx_topic_subject_slug,priority:1"`
	Subject      *Subject    `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	ClassID      string      `json:"classId" gorm:"size:36;not null;index"`
	Class        *Class      `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	Subtopics    []Subtopic  `json:"subtopics,omitempty" gorm:"foreignKey:TopicID"`
}

type Subtopic struct {
	Base
	Name         string      `json:"name" gorm:"size:255;not null"`
	Slug         string      `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_subtopic_topic_slug,priority:2,where:deleted_at IS NULL"`
	TopicID      string      `json:"topicId" gorm:"size:36;not null;index;uniqueIndex:idx_subtopic_topic_slug,priority:1"`
	Topic        *Topic      `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	SubjectID    string      `json:"subjectId" gorm:"size:36;not null;index"`
	Subject      *Subject    `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	ClassID      string      `json:"classId" gorm:"size:36;not null;index"`
	Class        *Class      `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	Levels       []Level     `json:"levels,omitempty" gorm:"foreignKey:SubtopicID"`
}

type Level struct {
	Base
	Name         string      `json:"name" gorm:"size:255;not null"`
	Slug         string      `json:"slug" gorm:"size:255;not null;uniqueIndex:idx_level_subtopic_slug,priority:2,where:deleted_at IS NULL"`
	Rank         int         `json:"rank" gorm:"not null;uniqueIndex:idx_level_subtopic_rank,priority:2,where:deleted_at IS NULL"`
	SubtopicID   string      `json:"subtopicId" gorm:"size:36;not null;index;uniqueIndex:idx_level_subtopic_slug,priority:1;uniqueIndex:idx_level_subtopic_rank,priority:1"`
	Subtopic     *Subtopic   `json:"subtopic,omitempty" gorm:"foreignKey:SubtopicID"`
	TopicID      string      `json:"topicId" gorm:"size:36;not null;index"`
	Topic        *Topic      `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	SubjectID    string      `json:"subjectId" gorm:"size:36;not null;index"`
	Subject      *Subject    `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	ClassID      string      `json:"classId" gorm:"size:36;not null;index"`
	Class        *Class      `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	EnterpriseID string      `json:"enterpriseId" gorm:"size:36;not null;index"`
	Enterprise   *Enterprise `json:"enterprise,omitempty" gorm:"foreignKey:EnterpriseID"`
	Questions    []Question  `json:"questions,omitempty" gorm:"foreignKey:LevelID"`
}
