package items

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	topicIDPrefix = "topic"
	skillIDPrefix = "skill"
)

// highestTopicIDTx returns the greatest topic id in the owner's namespace,
// or "" when none exists. Ids are global per owner, not per item.
func highestTopicIDTx(tx *gorm.DB, owner Owner) (string, error) {
	var topic ItemTopic
	// Length-first ordering ranks topic_10 above topic_9; plain lexical
	// ordering would not once suffixes pass one digit.
	err := ownerScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner).
		Order("length(topic_id) DESC, topic_id DESC").
		Take(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return topic.TopicID, nil
}

// highestSkillIDTx returns the greatest skill id in the owner's namespace,
// or "" when none exists.
func highestSkillIDTx(tx *gorm.DB, owner Owner) (string, error) {
	var skill ItemSkill
	err := ownerScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner).
		Order("length(skill_id) DESC, skill_id DESC").
		Take(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return skill.SkillID, nil
}

// writeTagsTx allocates ids for both namespaces and inserts the tag rows for
// one item version. Allocation and insert share the caller's transaction.
func writeTagsTx(tx *gorm.DB, owner Owner, itemID ItemID, version int64, topics, skills []string) error {
	if len(topics) > 0 {
		highest, err := highestTopicIDTx(tx, owner)
		if err != nil {
			return err
		}
		ids := allocateTagIDs(topicIDPrefix, highest, len(topics))
		for i, name := range topics {
			row := ItemTopic{
				UserID:    owner.UserID.String(),
				ClassID:   owner.ClassID.String(),
				ItemID:    itemID.String(),
				Version:   version,
				TopicID:   ids[i],
				TopicName: name,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}

	if len(skills) > 0 {
		highest, err := highestSkillIDTx(tx, owner)
		if err != nil {
			return err
		}
		ids := allocateTagIDs(skillIDPrefix, highest, len(skills))
		for i, name := range skills {
			row := ItemSkill{
				UserID:    owner.UserID.String(),
				ClassID:   owner.ClassID.String(),
				ItemID:    itemID.String(),
				Version:   version,
				SkillID:   ids[i],
				SkillName: name,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// listTagNamesTx loads the topic and skill names bound to one item version.
func listTagNamesTx(tx *gorm.DB, owner Owner, itemID ItemID, version int64) ([]string, []string, error) {
	var topics []string
	err := itemScope(tx.Model(&ItemTopic{}), owner, itemID).
		Where("version = ?", version).
		Order("topic_id ASC").
		Pluck("topic_name", &topics).Error
	if err != nil {
		return nil, nil, err
	}

	var skills []string
	err = itemScope(tx.Model(&ItemSkill{}), owner, itemID).
		Where("version = ?", version).
		Order("skill_id ASC").
		Pluck("skill_name", &skills).Error
	if err != nil {
		return nil, nil, err
	}

	return topics, skills, nil
}
