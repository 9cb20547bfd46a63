package services

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/polarad/portal/internal/utils"
	"github.com/slack-go/slack"
)

// ChannelNotifier is the per-customer Slack channel surface used by the
// submission and design flows. Sensitive documents go through UploadFile
// straight from memory; nothing is written to storage.
type ChannelNotifier interface {
	CreateSubmissionChannel(clientName, userName, userEmail, userPhone string) (string, error)
	PostMessage(channelID, text string) error
	UploadFile(channelID string, content []byte, fileName, title, userName string) error
	UploadFileFromURL(channelID, fileURL, fileName, title string) error
}

// Channels is the process-wide notifier. Tests swap in a fake.
var Channels ChannelNotifier = &slackService{}

type slackService struct {
	once   sync.Once
	client *slack.Client
}

func (s *slackService) api() (*slack.Client, error) {
	s.once.Do(func() {
		token := os.Getenv("SLACK_BOT_TOKEN")
		if token == "" {
			return
		}
		s.client = slack.New(token)
	})

	if s.client == nil {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is not set")
	}

	return s.client, nil
}

// channelName builds the deterministic per-customer channel name,
// e.g. polarad-20251210-pollaseilseu. Deterministic naming is what makes
// channel creation idempotent.
func channelName(clientName string) string {
	dateStr := time.Now().Format("20060102")
	name := fmt.Sprintf("polarad-%s-%s", dateStr, utils.ToSlackChannelName(clientName))

	if len(name) > 80 {
		name = name[:80]
	}

	return name
}

func (s *slackService) findChannelByName(name string) (string, error) {
	api, err := s.api()
	if err != nil {
		return "", err
	}

	params := &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 1000,
	}

	for {
		channels, cursor, err := api.GetConversations(params)
		if err != nil {
			return "", fmt.Errorf("list conversations: %w", err)
		}

		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}

		if cursor == "" {
			return "", nil
		}
		params.Cursor = cursor
	}
}

// CreateSubmissionChannel creates (or reuses) the dedicated channel for a
// customer, invites the configured admins and posts the intro message.
func (s *slackService) CreateSubmissionChannel(clientName, userName, userEmail, userPhone string) (string, error) {
	api, err := s.api()
	if err != nil {
		return "", err
	}

	name := channelName(clientName)

	if existing, err := s.findChannelByName(name); err == nil && existing != "" {
		log.Printf("[Slack] reusing channel %s (%s)", name, existing)
		return existing, nil
	}

	channel, err := api.CreateConversation(slack.CreateConversationParams{ChannelName: name})
	if err != nil {
		return "", fmt.Errorf("create conversation %s: %w", name, err)
	}

	var mentions []string

	if adminEmails := os.Getenv("SLACK_ADMIN_EMAILS"); adminEmails != "" {
		for _, email := range strings.Split(adminEmails, ",") {
			email = strings.TrimSpace(email)
			if email == "" {
				continue
			}

			admin, err := api.GetUserByEmail(email)
			if err != nil {
				log.Printf("[Slack] admin lookup failed for %s: %v", email, err)
				continue
			}

			if _, err := api.InviteUsersToConversation(channel.ID, admin.ID); err != nil {
				log.Printf("[Slack] invite failed for %s: %v", email, err)
				continue
			}

			mentions = append(mentions, fmt.Sprintf("<@%s>", admin.ID))
		}
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "📋 새 클라이언트 자료 제출", true, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, "*클라이언트명:*\n"+clientName, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*담당자:*\n"+userName, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*연락처:*\n"+userPhone, false, false),
			slack.NewTextBlockObject(slack.MarkdownType, "*이메일:*\n"+userEmail, false, false),
		}, nil),
	}

	if len(mentions) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("👋 %s 새로운 클라이언트 자료가 제출되었습니다!", strings.Join(mentions, " ")),
				false, false),
			nil, nil))
	}

	if _, _, err := api.PostMessage(channel.ID,
		slack.MsgOptionText("📋 새 클라이언트 자료 제출", false),
		slack.MsgOptionBlocks(blocks...),
	); err != nil {
		log.Printf("[Slack] intro message failed for %s: %v", channel.ID, err)
	}

	return channel.ID, nil
}

func (s *slackService) PostMessage(channelID, text string) error {
	api, err := s.api()
	if err != nil {
		return err
	}

	if _, _, err := api.PostMessage(channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post message to %s: %w", channelID, err)
	}

	return nil
}

// UploadFile posts file content straight from memory into the channel.
func (s *slackService) UploadFile(channelID string, content []byte, fileName, title, userName string) error {
	api, err := s.api()
	if err != nil {
		return err
	}

	comment := fmt.Sprintf("🔐 *%s*", title)
	if userName != "" {
		comment += " - " + userName
	}
	comment += "\n_이 파일은 보안을 위해 서버에 저장되지 않습니다_"

	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:        channelID,
		Reader:         strings.NewReader(string(content)),
		FileSize:       len(content),
		Filename:       fileName,
		Title:          title,
		InitialComment: comment,
	})

	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", fileName, channelID, err)
	}

	return nil
}

// UploadFileFromURL fetches a public object-storage URL and shares it into
// the channel.
func (s *slackService) UploadFileFromURL(channelID, fileURL, fileName, title string) error {
	resp, err := http.Get(fileURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("fetch %s: status %d", fileURL, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", fileURL, err)
	}

	api, err := s.api()
	if err != nil {
		return err
	}

	_, err = api.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:        channelID,
		Reader:         strings.NewReader(string(content)),
		FileSize:       len(content),
		Filename:       fileName,
		Title:          title,
		InitialComment: "📎 " + title,
	})

	if err != nil {
		return fmt.Errorf("upload %s to %s: %w", fileName, channelID, err)
	}

	return nil
}
