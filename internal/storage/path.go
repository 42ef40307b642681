package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildArchivePath returns the object key for a parquet export of one table,
// partitioned by capture date so archives of the same table never collide.
func BuildArchivePath(dataset, tableName string, capturedAt time.Time) (string, error) {
	if err := validatePathComponent(dataset, "dataset"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	ts := capturedAt.UTC()
	return path.Join(
		dataset,
		"archive",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s-%02d%02d%02d.parquet", tableName, ts.Hour(), ts.Minute(), ts.Second()),
	), nil
}

// BuildSourcePath returns the object key for a raw source file awaiting load.
func BuildSourcePath(dataset, fileName string) (string, error) {
	if err := validatePathComponent(dataset, "dataset"); err != nil {
		return "", err
	}
	if err := validatePathComponent(fileName, "file name"); err != nil {
		return "", err
	}
	return path.Join(dataset, "sources", fileName), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
