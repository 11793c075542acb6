package queue

import (
	"database/sql"
	"time"
)

const itemColumns = "id, item_type, item_id, series_id, file_path, title, detail, manual, dry_run, created_at"

const historyColumns = "id, item_type, item_id, series_id, file_path, title, detail, success, swears_found, error_message, output_path, dry_run, processed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(scanner rowScanner) (*Item, error) {
	var (
		item     Item
		kind     string
		seriesID sql.NullInt64
		title    sql.NullString
		detail   sql.NullString
		manual   int
		dryRun   int
		created  int64
	)
	if err := scanner.Scan(
		&item.ID,
		&kind,
		&item.ItemID,
		&seriesID,
		&item.FilePath,
		&title,
		&detail,
		&manual,
		&dryRun,
		&created,
	); err != nil {
		return nil, err
	}
	item.Kind = Kind(kind)
	item.SeriesID = seriesID.Int64
	item.Title = title.String
	item.Detail = detail.String
	item.Manual = manual != 0
	item.DryRun = dryRun != 0
	item.CreatedAt = fromUnixNano(created)
	return &item, nil
}

func scanHistory(scanner rowScanner) (*HistoryRecord, error) {
	var (
		rec       HistoryRecord
		kind      string
		seriesID  sql.NullInt64
		title     sql.NullString
		detail    sql.NullString
		success   int
		errMsg    sql.NullString
		output    sql.NullString
		dryRun    int
		processed int64
	)
	if err := scanner.Scan(
		&rec.ID,
		&kind,
		&rec.ItemID,
		&seriesID,
		&rec.FilePath,
		&title,
		&detail,
		&success,
		&rec.SwearsFound,
		&errMsg,
		&output,
		&dryRun,
		&processed,
	); err != nil {
		return nil, err
	}
	rec.Kind = Kind(kind)
	rec.SeriesID = seriesID.Int64
	rec.Title = title.String
	rec.Detail = detail.String
	rec.Success = success != 0
	rec.Error = errMsg.String
	rec.OutputPath = output.String
	rec.DryRun = dryRun != 0
	rec.ProcessedAt = fromUnixNano(processed)
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func fromUnixNano(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(0, value).UTC()
}
