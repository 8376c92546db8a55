package queue

import (
	"database/sql"

	"polyglot/internal/sqlitedb"
)

const itemColumns = "id, post_id, source_lang, target_lang, status, prompt, response, error_message, created_at, processed_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id           int64
		postID       int64
		sourceLang   string
		targetLang   string
		statusStr    string
		prompt       string
		response     sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		processedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&postID,
		&sourceLang,
		&targetLang,
		&statusStr,
		&prompt,
		&response,
		&errorMessage,
		&createdRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:           id,
		PostID:       postID,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		Status:       Status(statusStr),
		Prompt:       prompt,
		Response:     response.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := sqlitedb.ParseTime(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if processedRaw.Valid {
		if processed, err := sqlitedb.ParseTime(processedRaw.String); err == nil {
			item.ProcessedAt = &processed
		}
	}
	return item, nil
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return args
}
