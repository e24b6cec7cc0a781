package items

// ItemPointer tracks the single live version for an item. An item exists iff
// its pointer row exists; snapshots above the pointer never persist.
type ItemPointer struct {
	UserID  string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID string `gorm:"column:class_id;primaryKey;size:190;not null"`
	ItemID  string `gorm:"column:item_id;primaryKey;size:190;not null"`
	Version int64  `gorm:"column:version;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (ItemPointer) TableName() string {
	return "item_current"
}

// ItemSnapshot stores one immutable content record for an item version.
type ItemSnapshot struct {
	UserID                 string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID                string `gorm:"column:class_id;primaryKey;size:190;not null"`
	ItemID                 string `gorm:"column:item_id;primaryKey;size:190;not null"`
	Version                int64  `gorm:"column:version;primaryKey"`
	QuestionPart           string `gorm:"column:question_part;type:text;not null"`
	AnswerPart             string `gorm:"column:answer_part;type:text;not null"`
	Format                 string `gorm:"column:format;size:8;not null"`
	Difficulty             string `gorm:"column:difficulty;size:50;not null"`
	WrongAnswerExplanation string `gorm:"column:wrong_answer_explanation;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (ItemSnapshot) TableName() string {
	return "item_history"
}

// ItemTopic binds a named topic tag to a specific item version.
type ItemTopic struct {
	UserID    string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID   string `gorm:"column:class_id;primaryKey;size:190;not null"`
	ItemID    string `gorm:"column:item_id;primaryKey;size:190;not null"`
	Version   int64  `gorm:"column:version;primaryKey"`
	TopicID   string `gorm:"column:topic_id;primaryKey;size:190;not null"`
	TopicName string `gorm:"column:topic_name;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ItemTopic) TableName() string {
	return "item_topics"
}

// ItemSkill binds a named skill tag to a specific item version.
type ItemSkill struct {
	UserID    string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID   string `gorm:"column:class_id;primaryKey;size:190;not null"`
	ItemID    string `gorm:"column:item_id;primaryKey;size:190;not null"`
	Version   int64  `gorm:"column:version;primaryKey"`
	SkillID   string `gorm:"column:skill_id;primaryKey;size:190;not null"`
	SkillName string `gorm:"column:skill_name;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ItemSkill) TableName() string {
	return "item_skills"
}

// TestEntry places an item inside a composition at a dense 1-based rank.
type TestEntry struct {
	UserID      string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID     string `gorm:"column:class_id;primaryKey;size:190;not null"`
	TestID      string `gorm:"column:test_id;primaryKey;size:190;not null"`
	ItemID      string `gorm:"column:item_id;primaryKey;size:190;not null"`
	OrderNumber int64  `gorm:"column:order_number;not null"`
}

// TableName provides the explicit table binding for GORM.
func (TestEntry) TableName() string {
	return "tests"
}

// UserClass is the lazily created owner membership record.
type UserClass struct {
	UserID  string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID string `gorm:"column:class_id;primaryKey;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (UserClass) TableName() string {
	return "user_classes"
}

// UserTest registers a composition under its owner.
type UserTest struct {
	UserID  string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID string `gorm:"column:class_id;primaryKey;size:190;not null"`
	TestID  string `gorm:"column:test_id;primaryKey;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (UserTest) TableName() string {
	return "user_tests"
}

// RequirementRecord stores one immutable modification instruction with the
// content fields it targets.
type RequirementRecord struct {
	UserID                 string `gorm:"column:user_id;primaryKey;size:190;not null"`
	ClassID                string `gorm:"column:class_id;primaryKey;size:190;not null"`
	TestID                 string `gorm:"column:test_id;primaryKey;size:190;not null"`
	RequirementID          string `gorm:"column:req_id;primaryKey;size:190;not null"`
	ItemID                 string `gorm:"column:item_id;size:190"`
	Version                int64  `gorm:"column:version;not null;default:0"`
	Content                string `gorm:"column:content;type:text;not null"`
	UsageCount             int64  `gorm:"column:usage_count;not null"`
	ApplicationCount       int64  `gorm:"column:application_count;not null"`
	Question               bool   `gorm:"column:question;not null;default:false"`
	Answer                 bool   `gorm:"column:answer;not null;default:false"`
	WrongAnswerExplanation bool   `gorm:"column:wrong_answer_explanation;not null;default:false"`
	Topics                 bool   `gorm:"column:topics;not null;default:false"`
	Skills                 bool   `gorm:"column:skills;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (RequirementRecord) TableName() string {
	return "requirements"
}

// Models lists every row type the store persists, in migration order.
func Models() []any {
	return []any{
		&ItemPointer{},
		&ItemSnapshot{},
		&ItemTopic{},
		&ItemSkill{},
		&TestEntry{},
		&UserClass{},
		&UserTest{},
		&RequirementRecord{},
	}
}
