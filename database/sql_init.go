/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/uptrace/bun"
)

const commonSeedDir = "common"

// SQLInitManager runs SQL seed files. Files under common/ run first, then
// those under environments/<env>/, each group ordered by the numeric file
// prefix. Every file runs in its own transaction and is rendered as a
// text/template whose data is the process environment plus ENVIRONMENT and
// TIMESTAMP.
type SQLInitManager struct {
	db          bun.IDB
	environment string
	root        fs.FS
	rootPath    string
	logger      Logger
}

// SQLFileInfo describes one seed file. Path is relative to the seed root.
type SQLFileInfo struct {
	Path        string
	Name        string
	Order       int
	Environment string
	ModTime     time.Time
}

// ExecutionResult is the outcome of one seed file.
type ExecutionResult struct {
	File         string
	Statements   int
	RowsAffected int64
	Duration     time.Duration
	Err          error
}

// NewSQLInitManager creates a seeder for environment reading from
// configs/sql until SetSQLRootPath or SetSQLFS is called.
func NewSQLInitManager(db bun.IDB, environment string) *SQLInitManager {
	s := &SQLInitManager{
		db:          db,
		environment: environment,
		logger:      GetLogger(),
	}
	s.SetSQLRootPath(DefaultConfig().DataInitConfig.Filepath)
	return s
}

// SetSQLRootPath reads seed files from a directory.
func (s *SQLInitManager) SetSQLRootPath(dir string) {
	s.root = os.DirFS(dir)
	s.rootPath = dir
}

// SetSQLFS reads seed files from fsys, e.g. an embed.FS.
func (s *SQLInitManager) SetSQLFS(fsys fs.FS) {
	s.root = fsys
	s.rootPath = "<fs>"
}

// ExecuteInitialization runs every seed file in order and stops at the first
// failing file. Files that ran before it stay committed.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context) error {
	_, err := s.Execute(ctx)
	return err
}

// Execute is ExecuteInitialization returning the per-file results.
func (s *SQLInitManager) Execute(ctx context.Context) ([]ExecutionResult, error) {
	s.logger.Info("Starting SQL initialization", "environment", s.environment, "sql_path", s.rootPath)

	files, err := s.GetSQLFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No SQL files found to execute")
		return nil, nil
	}

	results := make([]ExecutionResult, 0, len(files))
	for _, file := range files {
		result := s.executeFile(ctx, file)
		results = append(results, result)
		if result.Err != nil {
			s.logger.Error("SQL file execution failed", "file", result.File, "error", result.Err)
			return results, fmt.Errorf("SQL file execution failed %s: %w", result.File, result.Err)
		}
		s.logger.Info("SQL file executed",
			"file", result.File,
			"statements", result.Statements,
			"rows_affected", result.RowsAffected,
			"duration", result.Duration.String(),
		)
	}

	s.logger.Info("SQL initialization completed", "total_files", len(files), "environment", s.environment)
	return results, nil
}

// GetSQLFiles lists the seed files in execution order.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	common, err := s.listDir(commonSeedDir, commonSeedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list common SQL files: %w", err)
	}
	env, err := s.listDir(path.Join("environments", s.environment), s.environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s SQL files: %w", s.environment, err)
	}
	return append(common, env...), nil
}

// listDir collects the .sql files below dir, sorted by order then path. A
// missing dir yields no files.
func (s *SQLInitManager) listDir(dir, environment string) ([]SQLFileInfo, error) {
	if _, err := fs.Stat(s.root, dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []SQLFileInfo
	err := fs.WalkDir(s.root, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(d.Name()), ".sql") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, SQLFileInfo{
			Path:        p,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// unorderedFile sorts files without a numeric prefix after numbered ones.
const unorderedFile = 999

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// parseFileOrder reads the numeric prefix of names like 001_roles.sql.
func parseFileOrder(name string) int {
	if m := fileOrderPattern.FindStringSubmatch(name); m != nil {
		if order, err := strconv.Atoi(m[1]); err == nil {
			return order
		}
	}
	return unorderedFile
}

func (s *SQLInitManager) executeFile(ctx context.Context, file SQLFileInfo) (result ExecutionResult) {
	start := time.Now()
	result.File = file.Path
	defer func() { result.Duration = time.Since(start) }()

	content, err := fs.ReadFile(s.root, file.Path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read file: %w", err)
		return result
	}
	rendered, err := s.render(file.Name, string(content))
	if err != nil {
		result.Err = err
		return result
	}
	statements := splitStatements(rendered)
	result.Statements = len(statements)
	if len(statements) == 0 {
		return result
	}

	result.Err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, err := tx.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				result.RowsAffected += n
			}
		}
		return nil
	})
	return result
}

// render executes content as a template. Unknown variables render empty.
func (s *SQLInitManager) render(name, content string) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s.templateData()); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *SQLInitManager) templateData() map[string]string {
	data := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			data[key] = value
		}
	}
	data["ENVIRONMENT"] = s.environment
	data["TIMESTAMP"] = time.Now().Format("2006-01-02 15:04:05")
	return data
}

// splitStatements splits SQL on semicolons outside quotes. Line comments are
// dropped and whitespace runs outside quotes collapse to one space.
// Statements keep their terminating semicolon.
func splitStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		pendingWS  bool
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && stmt != ";" {
			statements = append(statements, stmt)
		}
		current.Reset()
		pendingWS = false
	}
	write := func(r rune) {
		if pendingWS && current.Len() > 0 {
			current.WriteByte(' ')
		}
		pendingWS = false
		current.WriteRune(r)
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				// a doubled quote is an escaped quote
				if i+1 < len(runes) && runes[i+1] == quote {
					current.WriteRune(runes[i+1])
					i++
				} else {
					quote = 0
				}
			}
		case r == '\'' || r == '"' || r == '`':
			write(r)
			quote = r
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			pendingWS = true
		case unicode.IsSpace(r):
			pendingWS = true
		case r == ';':
			pendingWS = false
			current.WriteRune(r)
			flush()
		default:
			write(r)
		}
	}
	flush()
	return statements
}
