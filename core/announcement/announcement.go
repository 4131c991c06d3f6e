// Package announcement lets floor staff broadcast messages to the members of their floor.
package announcement

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

var (
	// errors
	ErrForbidden = errors.New("not allowed to post on this floor")

	NowFunc = time.Now // mockable

	subjectMaxLen = 78
)

type Announcement struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id,omitempty"`
	Campus    string    `json:"campus"`
	Floor     int       `json:"floor"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewAnnouncement struct {
	Campus string `json:"-"`
	Floor  int    `json:"-"`
	Title  string `json:"title" validate:"required,notblank,max=200"`
	Body   string `json:"body" validate:"required,notblank"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Campus = core.CleanString(na.Campus, true /* lower */)
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	return validate.Struct(na)
}

type QueryFilter struct {
	Campus string
	Floor  int
	Limit  int
}

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		// QueryAnnouncements returns the announcements of a floor, newest first.
		QueryAnnouncements(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Announcement, error)
	}

	// MemberLister lists the active members of a campus floor.
	MemberLister interface {
		Query(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering) ([]member.Member, error)
	}

	ScopeChecker interface {
		CheckFloor(ctx context.Context, campus string, floor int) error
	}

	Service struct {
		repo    Repository
		members MemberLister
		scopes  ScopeChecker
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, members MemberLister, scopes ScopeChecker, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, members: members, scopes: scopes, mailSvc: mailSvc}
}

// CanPost reports whether author may post on the campus floor: admins anywhere, floor staff on their own floor.
func CanPost(author member.Member, campus string, floor int) bool {
	switch author.Role {
	case member.RoleAdmin:
		return true
	case member.RoleFloorStaff:
		return author.InScope(campus, floor)
	case member.RoleStudent, member.RoleMentor:
		return false
	default:
		return false
	}
}

// Post stores a validated announcement and emails it to every other active member of the floor.
func (svc *Service) Post(ctx context.Context, author member.Member, na NewAnnouncement) (Announcement, error) {
	if !CanPost(author, na.Campus, na.Floor) {
		return Announcement{}, ErrForbidden
	}
	if err := svc.scopes.CheckFloor(ctx, na.Campus, na.Floor); err != nil {
		return Announcement{}, err
	}

	a, err := svc.repo.CreateAnnouncement(ctx, Announcement{
		ID:        uuid.New().String(),
		AuthorID:  author.ID,
		Campus:    na.Campus,
		Floor:     na.Floor,
		Title:     na.Title,
		Body:      na.Body,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}

	active := true
	recipients, err := svc.members.Query(ctx, &member.QueryFilter{Campus: a.Campus, Floor: a.Floor, IsActive: &active}, nil)
	if err != nil {
		return a, errors.Wrap(err, "querying floor members")
	}
	svc.broadcast(a, author, recipients)
	return a, nil
}

func (svc *Service) broadcast(a Announcement, author member.Member, recipients []member.Member) {
	if svc.mailSvc == nil {
		return
	}
	subject := core.Truncate(fmt.Sprintf("[%s %d] %s", a.Campus, a.Floor, a.Title), subjectMaxLen)
	msgs := make([]*core.EmailMessage, 0, len(recipients))
	for _, m := range recipients {
		if m.ID == author.ID || m.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: m.Name, Address: m.Email}},
			Subject:      subject,
			TemplateName: "announcement",
			TemplateData: map[string]interface{}{
				"Title":      a.Title,
				"Body":       a.Body,
				"Campus":     a.Campus,
				"Floor":      a.Floor,
				"AuthorName": author.Name,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Announcement, error) {
	filter.Campus = core.CleanString(filter.Campus, true /* lower */)
	return svc.repo.QueryAnnouncements(ctx, filter)
}
