package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/announcement"
)

const announcementTable = "announcement"

var announcementColumns = []string{"id", "author_id", "campus", "floor", "title", "body", "created_at"}

type announcementRow struct {
	ID        string      `db:"id"`
	AuthorID  null.String `db:"author_id"`
	Campus    string      `db:"campus"`
	Floor     int         `db:"floor"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r announcementRow) toAnnouncement() announcement.Announcement {
	return announcement.Announcement{
		ID:        r.ID,
		AuthorID:  r.AuthorID.String,
		Campus:    r.Campus,
		Floor:     r.Floor,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type announcementRepository struct {
	repository
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor, engine string) *announcementRepository {
	return &announcementRepository{repository: newRepository(exec, engine)}
}

func (repo announcementRepository) CreateAnnouncement(
	ctx context.Context,
	a announcement.Announcement,
	exec ...core.DBExecutor,
) (announcement.Announcement, error) {
	stmt := repo.sb.Insert(announcementTable).Columns(announcementColumns...).
		Values(a.ID, null.NewString(a.AuthorID, a.AuthorID != ""), a.Campus, a.Floor, a.Title, a.Body, a.CreatedAt.UTC())
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (repo announcementRepository) QueryAnnouncements(
	ctx context.Context,
	filter announcement.QueryFilter,
	exec ...core.DBExecutor,
) ([]announcement.Announcement, error) {
	query := repo.sb.Select(announcementColumns...).From(announcementTable).
		Where(sq.Eq{"campus": filter.Campus, "floor": filter.Floor}).
		OrderBy("created_at DESC", "id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	var rows []announcementRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	announcements := make([]announcement.Announcement, 0, len(rows))
	for _, r := range rows {
		announcements = append(announcements, r.toAnnouncement())
	}
	return announcements, nil
}
