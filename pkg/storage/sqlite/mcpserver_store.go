// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
	"k8s.io/utils/ptr"

	"github.com/stacklok/mcpserver-api/pkg/logger"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers"
	"github.com/stacklok/mcpserver-api/pkg/mcpservers/types"
	"github.com/stacklok/mcpserver-api/pkg/storage"
)

// MCPServerStore implements mcpservers.Manager on top of SQLite. Nothing
// reconciles the stored servers, so availability is always Unknown and the
// resolved address is the configured one.
type MCPServerStore struct {
	wrapper *DB
	db      *sql.DB
	now     func() time.Time
}

var _ mcpservers.Manager = (*MCPServerStore)(nil)

// NewMCPServerStore creates a new SQLite-backed MCP server store.
func NewMCPServerStore(db *DB) *MCPServerStore {
	return &MCPServerStore{wrapper: db, db: db.DB(), now: time.Now}
}

// Close closes the underlying database connection.
func (s *MCPServerStore) Close() error {
	return s.wrapper.Close()
}

// serverColumns is the SELECT column list shared by Get and List queries.
const serverColumns = `id, namespace, name, json(labels), json(annotations), json(spec),
			available, status_message, created_at`

// List returns the servers in namespace ordered by name. An empty namespace
// lists every namespace.
func (s *MCPServerStore) List(ctx context.Context, namespace string) ([]*mcpservers.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM mcp_servers`
	var args []any
	if namespace != "" {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}
	query += ` ORDER BY name, namespace`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mcp servers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	servers := []*mcpservers.Server{}
	for rows.Next() {
		srv, scanErr := scanServer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mcp server rows: %w", err)
	}

	return servers, nil
}

// Get returns the named server.
func (s *MCPServerStore) Get(ctx context.Context, namespace, name string) (*mcpservers.Server, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM mcp_servers WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	return scanServer(row)
}

// Create stores a new server.
func (s *MCPServerStore) Create(ctx context.Context, req *types.MCPServerCreateRequest) (*mcpservers.Server, error) {
	srv := &mcpservers.Server{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Namespace:   req.Namespace,
		Labels:      req.Labels,
		Annotations: req.Annotations,
		Spec:        req.Spec,
		CreatedAt:   s.now().UTC(),
	}

	labels, annotations, spec, err := encodeServer(srv)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO mcp_servers (id, namespace, name, labels, annotations, spec, created_at, updated_at)
		VALUES (?, ?, ?, jsonb(?), jsonb(?), jsonb(?), ?, ?)`,
		srv.ID, srv.Namespace, srv.Name, labels, annotations, spec,
		formatTime(srv.CreatedAt), formatTime(srv.CreatedAt),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("mcp server %s/%s: %w", srv.Namespace, srv.Name, storage.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("inserting mcp server: %w", err)
	}

	logger.Debugf("Stored MCP server '%s' in namespace '%s'", srv.Name, srv.Namespace)
	withLocalStatus(srv)
	return srv, nil
}

// Update applies a partial update to the named server.
func (s *MCPServerStore) Update(
	ctx context.Context, namespace, name string, req *types.MCPServerUpdateRequest,
) (*mcpservers.Server, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	srv, err := scanServer(tx.QueryRowContext(ctx,
		`SELECT `+serverColumns+` FROM mcp_servers WHERE namespace = ? AND name = ?`,
		namespace, name,
	))
	if err != nil {
		return nil, err
	}

	srv.ApplyUpdate(req)

	labels, annotations, spec, err := encodeServer(srv)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE mcp_servers SET
			labels = jsonb(?), annotations = jsonb(?), spec = jsonb(?), updated_at = ?
		WHERE id = ?`,
		labels, annotations, spec, formatTime(s.now().UTC()), srv.ID,
	); err != nil {
		return nil, fmt.Errorf("updating mcp server: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	withLocalStatus(srv)
	return srv, nil
}

// Delete removes the named server.
func (s *MCPServerStore) Delete(ctx context.Context, namespace, name string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM mcp_servers WHERE namespace = ? AND name = ?`,
		namespace, name,
	)
	if err != nil {
		return fmt.Errorf("deleting mcp server: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mcp server %s/%s: %w", namespace, name, storage.ErrNotFound)
	}

	logger.Debugf("Deleted MCP server '%s' from namespace '%s'", name, namespace)
	return nil
}

// Ping checks that the database answers.
func (s *MCPServerStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging sqlite database: %w", err)
	}
	return nil
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanServer(sc scanner) (*mcpservers.Server, error) {
	var (
		srv             mcpservers.Server
		labelsBlob      []byte
		annotationsBlob []byte
		specBlob        []byte
		available       string
		statusMessage   sql.NullString
		createdAtStr    string
	)

	err := sc.Scan(
		&srv.ID, &srv.Namespace, &srv.Name, &labelsBlob, &annotationsBlob, &specBlob,
		&available, &statusMessage, &createdAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scanning mcp server row: %w", err)
	}

	if srv.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := decodeJSONB(labelsBlob, &srv.Labels); err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	if err := decodeJSONB(annotationsBlob, &srv.Annotations); err != nil {
		return nil, fmt.Errorf("decoding annotations: %w", err)
	}
	if err := decodeJSONB(specBlob, &srv.Spec); err != nil {
		return nil, fmt.Errorf("decoding spec: %w", err)
	}

	srv.Status.Available = ptr.To(types.AvailabilityStatus(available))
	if statusMessage.Valid {
		srv.Status.Message = ptr.To(statusMessage.String)
	}
	withLocalStatus(&srv)

	return &srv, nil
}

// withLocalStatus fills in the status fields that are derived rather than
// stored.
func withLocalStatus(srv *mcpservers.Server) {
	if srv.Status.Available == nil {
		srv.Status.Available = ptr.To(types.AvailabilityUnknown)
	}
	if addr := srv.Spec.Address.Value; addr != "" {
		srv.Status.ResolvedAddress = ptr.To(addr)
	} else {
		srv.Status.ResolvedAddress = nil
	}
}

func encodeServer(srv *mcpservers.Server) (labels, annotations, spec string, err error) {
	if labels, err = encodeJSONB(srv.Labels); err != nil {
		return "", "", "", fmt.Errorf("encoding labels: %w", err)
	}
	if annotations, err = encodeJSONB(srv.Annotations); err != nil {
		return "", "", "", fmt.Errorf("encoding annotations: %w", err)
	}
	if spec, err = encodeJSONB(srv.Spec); err != nil {
		return "", "", "", fmt.Errorf("encoding spec: %w", err)
	}
	return labels, annotations, spec, nil
}

// encodeJSONB marshals a value for the SQLite jsonb() function.
func encodeJSONB(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return string(data), nil
}

// decodeJSONB unmarshals JSON read back through json() into out. NULL
// columns leave out untouched.
func decodeJSONB(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshaling JSON: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

// isUniqueViolation checks for a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// rollback rolls back tx, ignoring errors (tx may already be committed).
func rollback(tx *sql.Tx) { _ = tx.Rollback() }
