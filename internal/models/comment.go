package models

import "time"

// Comment belongs to an activity; ParentID threads a reply.
type Comment struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActivityID uint              `gorm:"index;not null" json:"activity_id"`
	Activity   *Activity         `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	AuthorID   uint              `gorm:"index;not null" json:"author_id"`
	Author     *User             `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentID   *uint             `gorm:"index" json:"parent_id"`
	Body       string            `gorm:"type:text;not null" json:"body"`
	Replies    []Comment         `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	Reactions  []CommentReaction `gorm:"foreignKey:CommentID" json:"reactions,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

// ReactionEmojis is the fixed reaction palette.
var ReactionEmojis = []string{"👍", "🎉", "❤️", "👏"}

func IsReactionEmoji(emoji string) bool {
	for _, e := range ReactionEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

type CommentReaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"uniqueIndex:idx_reaction_comment_user_emoji;index;not null" json:"comment_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_reaction_comment_user_emoji;index;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Emoji     string    `gorm:"uniqueIndex:idx_reaction_comment_user_emoji;size:16;not null" json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentReaction) TableName() string { return "comment_reactions" }
