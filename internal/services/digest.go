package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// DigestService emails each opted-in user a summary of recent unread
// notifications.
type DigestService struct {
	db    *gorm.DB
	queue DeliveryQueue
	clock scheduling.Clock
}

func NewDigestService(db *gorm.DB, queue DeliveryQueue, clock scheduling.Clock) *DigestService {
	return &DigestService{db: db, queue: queue, clock: clock}
}

// Run sends digests to users whose digest_time hour matches the clock's
// current hour, and returns how many were sent.
func (s *DigestService) Run() (int, error) {
	now := s.clock.Now()
	hourPrefix := fmt.Sprintf("%02d:", now.Hour())

	var users []models.User
	err := s.db.Where("daily_digest = ? AND email_notifications = ? AND is_active = ?", true, true, true).
		Where("digest_time LIKE ?", hourPrefix+"%").
		Order("id").
		Find(&users).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range users {
		ok, err := s.sendTo(&users[i], now)
		if err != nil {
			logger.Error().Err(err).Uint("user_id", users[i].ID).Msg("digest failed")
			continue
		}
		if ok {
			sent++
		}
	}
	logger.Info().Int("sent", sent).Int("candidates", len(users)).Msg("daily digest finished")
	return sent, nil
}

func (s *DigestService) sendTo(user *models.User, now time.Time) (bool, error) {
	var notifications []models.Notification
	err := s.db.Preload("Actor").
		Where("recipient_id = ? AND read_at IS NULL AND created_at >= ?", user.ID, now.Add(-24*time.Hour)).
		Order("created_at DESC").
		Find(&notifications).Error
	if err != nil {
		return false, err
	}
	if len(notifications) == 0 {
		return false, nil
	}
	if s.queue == nil {
		return false, nil
	}

	task := &DeliveryTask{
		RecipientID: user.ID,
		Channel:     ChannelEmail,
		To:          user.Email,
		Subject:     DigestSubject(len(notifications)),
		Body:        DigestBody(user, notifications),
	}
	return true, s.queue.Enqueue(task)
}

func DigestSubject(count int) string {
	noun := "notifications"
	if count == 1 {
		noun = "notification"
	}
	return fmt.Sprintf("Your daily digest - %d new %s", count, noun)
}

var digestSections = []struct {
	title   string
	actions []models.Action
}{
	{"Activities", []models.Action{models.ActionActivityAssigned, models.ActionActivityUpdated, models.ActionActivityDueSoon, models.ActionActivityOverdue}},
	{"Comments", []models.Action{models.ActionCommentAdded, models.ActionCommentMentioned}},
	{"Messages", []models.Action{models.ActionMessageReceived}},
	{"Projects", []models.Action{models.ActionProjectInvitation, models.ActionMemberJoined}},
}

// DigestBody groups notifications into sections, newest first.
func DigestBody(user *models.User, notifications []models.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\nHere is what you missed:\n", user.DisplayName())

	for _, section := range digestSections {
		var lines []string
		for i := range notifications {
			n := &notifications[i]
			for _, a := range section.actions {
				if n.Action == a {
					lines = append(lines, "- "+Message(n)+" ("+URL(n)+")")
					break
				}
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d)\n%s\n", section.title, len(lines), strings.Join(lines, "\n"))
	}
	return sb.String()
}
