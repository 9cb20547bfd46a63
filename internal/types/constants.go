package types

import (
	"os"
	"strings"
)

const ContextUserKey = "user"

// Workflow deliverable types
const (
	WorkflowNamecard = "NAMECARD"
	WorkflowNametag  = "NAMETAG"
	WorkflowContract = "CONTRACT"
	WorkflowEnvelope = "ENVELOPE"
	WorkflowWebsite  = "WEBSITE"
	WorkflowBlog     = "BLOG"
	WorkflowMetaAds  = "META_ADS"
	WorkflowNaverAds = "NAVER_ADS"
)

// Workflow statuses
const (
	WorkflowPending        = "PENDING"
	WorkflowSubmitted      = "SUBMITTED"
	WorkflowInProgress     = "IN_PROGRESS"
	WorkflowDesignUploaded = "DESIGN_UPLOADED"
	WorkflowOrderRequested = "ORDER_REQUESTED"
	WorkflowOrderApproved  = "ORDER_APPROVED"
	WorkflowCompleted      = "COMPLETED"
	WorkflowShipped        = "SHIPPED"
	WorkflowCancelled      = "CANCELLED"
)

// DefaultWorkflowTypes are created for every new user at signup.
var DefaultWorkflowTypes = []string{
	WorkflowNamecard,
	WorkflowNametag,
	WorkflowContract,
	WorkflowEnvelope,
	WorkflowWebsite,
}

// DigitalWorkflowTypes complete directly on design approval instead of
// going through the print-order flow.
var DigitalWorkflowTypes = map[string]bool{
	WorkflowWebsite: true,
	WorkflowBlog:    true,
}

// Design statuses
const (
	DesignDraft             = "DRAFT"
	DesignPendingReview     = "PENDING_REVIEW"
	DesignRevisionRequested = "REVISION_REQUESTED"
	DesignApproved          = "APPROVED"
)

// Submission statuses
const (
	SubmissionDraft     = "DRAFT"
	SubmissionSubmitted = "SUBMITTED"
	SubmissionInReview  = "IN_REVIEW"
	SubmissionApproved  = "APPROVED"
	SubmissionRejected  = "REJECTED"
)

// Contract statuses
const (
	ContractPending   = "PENDING"
	ContractSubmitted = "SUBMITTED"
	ContractApproved  = "APPROVED"
	ContractActive    = "ACTIVE"
	ContractRejected  = "REJECTED"
	ContractExpired   = "EXPIRED"
	ContractCancelled = "CANCELLED"
)

// Thread statuses
const (
	ThreadOpen       = "OPEN"
	ThreadInProgress = "IN_PROGRESS"
	ThreadResolved   = "RESOLVED"
)

// Ads client auth statuses
const (
	AuthStatusActive       = "ACTIVE"
	AuthStatusAuthRequired = "AUTH_REQUIRED"
	AuthStatusTokenExpired = "TOKEN_EXPIRED"
)

// Sensitive document types: streamed to Slack only, never persisted.
const (
	DocBusinessLicense = "businessLicense"
	DocIDCard          = "idCard"
	DocBankBook        = "bankBook"
)

var SensitiveFileTypes = map[string]bool{
	DocBusinessLicense: true,
	DocIDCard:          true,
	DocBankBook:        true,
}

var SensitiveFileLabels = map[string]string{
	DocBusinessLicense: "사업자등록증",
	DocIDCard:          "신분증",
	DocBankBook:        "통장 사본",
}

// WorkflowTypeLabels maps deliverable types to their Korean display names.
var WorkflowTypeLabels = map[string]string{
	WorkflowNamecard: "명함",
	WorkflowNametag:  "명찰",
	WorkflowContract: "계약서",
	WorkflowEnvelope: "대봉투",
	WorkflowWebsite:  "홈페이지",
	WorkflowBlog:     "블로그",
	WorkflowMetaAds:  "메타 광고",
	WorkflowNaverAds: "네이버 광고",
}

var WorkflowStatusLabels = map[string]string{
	WorkflowPending:        "대기",
	WorkflowSubmitted:      "제출완료",
	WorkflowInProgress:     "진행중",
	WorkflowDesignUploaded: "시안확인",
	WorkflowOrderRequested: "발주요청",
	WorkflowOrderApproved:  "발주승인",
	WorkflowCompleted:      "완료",
	WorkflowShipped:        "발송완료",
	WorkflowCancelled:      "취소됨",
}

type UserResponse struct {
	ID         uint   `json:"id"`
	ClientName string `json:"clientName"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}

	AllowedOrigins = initAllowedOrigins()
)

func initAllowedOrigins() []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	if clientURL := os.Getenv("CLIENT_URL"); clientURL != "" {
		origins = append(origins, clientURL)
	}

	if allowedOrigins := os.Getenv("ALLOWED_ORIGINS"); allowedOrigins != "" {
		envOrigins := strings.Split(allowedOrigins, ",")
		for _, origin := range envOrigins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	return origins
}
