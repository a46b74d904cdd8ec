package library

import (
	"context"

	"pixshare/pkg/grant"
	"pixshare/pkg/resource"
)

const eventColumns = "SELECT id, user_id, title, description, share_id FROM events"

func (r *SQLRepo) queryEvents(ctx context.Context, query string, args ...any) ([]resource.Event, []string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	events := []resource.Event{}
	owners := []string{}
	for rows.Next() {
		var (
			e     resource.Event
			owner string
		)
		if err := rows.Scan(&e.ID, &owner, &e.Name, &e.Description, &e.ShareID); err != nil {
			return nil, nil, err
		}
		events = append(events, e)
		owners = append(owners, owner)
	}
	return events, owners, rows.Err()
}

func (r *SQLRepo) Events(ctx context.Context, userID string) ([]resource.Event, error) {
	events, _, err := r.queryEvents(ctx, eventColumns+" WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	return events, err
}

func (r *SQLRepo) Event(ctx context.Context, userID string, eventID int64) (*resource.Event, error) {
	events, _, err := r.queryEvents(ctx, eventColumns+" WHERE id = ? AND user_id = ?", eventID, userID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return &events[0], nil
}

// EventByID loads an event regardless of owner, returning the owner too.
func (r *SQLRepo) EventByID(ctx context.Context, eventID int64) (*resource.Event, string, error) {
	events, owners, err := r.queryEvents(ctx, eventColumns+" WHERE id = ?", eventID)
	if err != nil {
		return nil, "", err
	}
	if len(events) == 0 {
		return nil, "", ErrNotFound
	}
	return &events[0], owners[0], nil
}

// CreateEvent stores the event together with its first public link, whose
// token doubles as the event's share id.
func (r *SQLRepo) CreateEvent(ctx context.Context, userID, name, description string) (*resource.Event, error) {
	s, err := newShare(grant.KindEvent, 0, false)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (user_id, title, description, share_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, name, description, s.Token, r.now())
	if err != nil {
		return nil, err
	}
	if s.EventID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if err := r.insertShare(ctx, tx, s); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &resource.Event{ID: s.EventID, Name: name, Description: description, ShareID: s.Token}, nil
}

// UpdateEvent renames the event when name is non-empty and replaces its
// description when description is non-nil.
func (r *SQLRepo) UpdateEvent(ctx context.Context, userID string, eventID int64, name string, description *string) (*resource.Event, error) {
	e, err := r.Event(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		e.Name = name
	}
	if description != nil {
		e.Description = *description
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE events SET title = ?, description = ? WHERE id = ?",
		e.Name, e.Description, eventID,
	); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepo) DeleteEvent(ctx context.Context, userID string, eventID int64) error {
	if _, err := r.Event(ctx, userID, eventID); err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM shares WHERE event_id = ?",
		"DELETE FROM event_albums WHERE event_id = ?",
		"DELETE FROM events WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, eventID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RotateEventLink issues a new public link for the event. Existing links
// survive unless revokeOld is set.
func (r *SQLRepo) RotateEventLink(ctx context.Context, userID string, eventID int64, revokeOld bool) (*Share, error) {
	if _, err := r.Event(ctx, userID, eventID); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if revokeOld {
		if _, err := tx.ExecContext(ctx, "DELETE FROM shares WHERE event_id = ?", eventID); err != nil {
			return nil, err
		}
	}
	s, err := newShare(grant.KindEvent, eventID, false)
	if err != nil {
		return nil, err
	}
	if err := r.insertShare(ctx, tx, s); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE events SET share_id = ? WHERE id = ?", s.Token, eventID); err != nil {
		return nil, err
	}
	return s, tx.Commit()
}

// AttachAlbums links albums to an event. Albums already attached are skipped.
func (r *SQLRepo) AttachAlbums(ctx context.Context, eventID int64, albumIDs []int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, albumID := range albumIDs {
		var n int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM event_albums WHERE event_id = ? AND album_id = ?",
			eventID, albumID,
		).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO event_albums (event_id, album_id) VALUES (?, ?)",
			eventID, albumID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLRepo) DetachAlbum(ctx context.Context, eventID, albumID int64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM event_albums WHERE event_id = ? AND album_id = ?",
		eventID, albumID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// EventAlbums lists the albums attached to an event, oldest first.
func (r *SQLRepo) EventAlbums(ctx context.Context, eventID int64) ([]resource.Album, error) {
	return r.queryAlbums(ctx, albumColumns+`
		JOIN event_albums ea ON ea.album_id = a.id
		WHERE ea.event_id = ?
		ORDER BY a.created_at, a.id`, eventID)
}

// EventPhotos lists every photo across the event's albums.
func (r *SQLRepo) EventPhotos(ctx context.Context, eventID int64) ([]resource.Photo, error) {
	photos, err := r.queryPhotos(ctx, `
		SELECT p.id, p.user_id, p.album_id, p.filename, p.filepath, p.size, p.uploaded_at
		FROM photos p
		JOIN event_albums ea ON ea.album_id = p.album_id
		WHERE ea.event_id = ?
		ORDER BY p.uploaded_at, p.id`, eventID)
	if err != nil {
		return nil, err
	}
	return resources(photos), nil
}
