package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connectsaude/connect/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepositoryPG returns a Repository backed by PostgreSQL.
func NewRepositoryPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if conn := db.ConnFromContext(ctx); conn != nil {
		return conn
	}
	return r.pool
}

const conversationCols = `id, patient_id, attendant_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Conversation) error {
	query := fmt.Sprintf(`
		INSERT INTO conversations (%s)
		VALUES ($1, $2, $3, $4, $5)`, conversationCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		c.ID, c.PatientID, c.AttendantID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE id = $1`, conversationCols)
	return scanConversation(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Conversation, error) {
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE patient_id = $1`, conversationCols)
	return scanConversation(r.conn(ctx).QueryRow(ctx, query, patientID))
}

func (r *repoPG) Update(ctx context.Context, c *Conversation) error {
	query := `
		UPDATE conversations
		SET attendant_id = $2, updated_at = $3
		WHERE id = $1`

	tag, err := r.conn(ctx).Exec(ctx, query, c.ID, c.AttendantID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Conversation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM conversations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`, conversationCols)

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		convs = append(convs, c)
	}
	return convs, total, rows.Err()
}

const messageCols = `id, conversation_id, author_role, attendant_id, content_type, body, created_at`

func (r *repoPG) CreateMessage(ctx context.Context, m *Message) error {
	query := fmt.Sprintf(`
		INSERT INTO messages (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, messageCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		m.ID, m.ConversationID, m.AuthorRole, m.AttendantID, m.ContentType, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		m.ConversationID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *repoPG) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id = $1`, messageCols)

	var m Message
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(
		&m.ID, &m.ConversationID, &m.AuthorRole, &m.AttendantID,
		&m.ContentType, &m.Body, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return &m, nil
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE conversation_id = $1`, conversationID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`, messageCols)

	rows, err := r.conn(ctx).Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorRole, &m.AttendantID,
			&m.ContentType, &m.Body, &m.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, total, rows.Err()
}

const attachmentCols = `id, message_id, file_name, content_type, size, storage_url, transcription, created_at`

func (r *repoPG) CreateAttachment(ctx context.Context, a *Attachment) error {
	query := fmt.Sprintf(`
		INSERT INTO attachments (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, attachmentCols)

	_, err := r.conn(ctx).Exec(ctx, query,
		a.ID, a.MessageID, a.FileName, a.ContentType, a.Size, a.StorageURL,
		a.Transcription, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *repoPG) SetTranscription(ctx context.Context, attachmentID uuid.UUID, transcription string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE attachments SET transcription = $2 WHERE id = $1`,
		attachmentID, transcription)
	if err != nil {
		return fmt.Errorf("set transcription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAttachmentNotFound
	}
	return nil
}

func (r *repoPG) ListAttachments(ctx context.Context, messageID uuid.UUID) ([]*Attachment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM attachments
		WHERE message_id = $1
		ORDER BY created_at`, attachmentCols)

	rows, err := r.conn(ctx).Query(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var atts []*Attachment
	for rows.Next() {
		var a Attachment
		err := rows.Scan(&a.ID, &a.MessageID, &a.FileName, &a.ContentType,
			&a.Size, &a.StorageURL, &a.Transcription, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, &a)
	}
	return atts, rows.Err()
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.PatientID, &c.AttendantID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
