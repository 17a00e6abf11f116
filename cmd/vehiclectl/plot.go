package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/driftworks/vehiclectl/internal/telemetry/gormstore"
	"github.com/driftworks/vehiclectl/internal/telemetry/memory"
	"github.com/driftworks/vehiclectl/internal/telemetry/plot"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// loadRun reads frames from a JSON export or a SQLite dump. For a dump the
// newest session is used unless sessionID names one.
func loadRun(path, sessionID string) (*core.Session, []core.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".db") {
		var (
			session *core.Session
			frames  []core.Frame
		)
		err := withSQLite(path, func(db *gorm.DB) error {
			if sessionID == "" {
				sessions, err := gormstore.Sessions(db)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					return fmt.Errorf("%s contains no sessions", path)
				}
				sessionID = sessions[0].UUID
			}
			var err error
			session, frames, err = gormstore.LoadFrames(db, sessionID)
			return err
		})
		return session, frames, err
	}

	run, err := memory.ReadExport(path)
	if err != nil {
		return nil, nil, err
	}
	if sessionID != "" && sessionID != run.Session.ID {
		return nil, nil, fmt.Errorf("%s holds session %s, not %s", path, run.Session.ID, sessionID)
	}
	return &run.Session, run.Frames, nil
}

func withSQLite(path string, fn func(db *gorm.DB) error) error {
	db, err := gormstore.OpenSQLite(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return errors.Join(fn(db), sqlDB.Close())
}

func plotRun(path, outDir, sessionID string, out io.Writer) error {
	session, frames, err := loadRun(path, sessionID)
	if err != nil {
		return err
	}
	written, err := plot.Render(frames, outDir, plot.DefaultOptions)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session %s (%s): %d frames\n", session.ID, session.Name, len(frames))
	for _, p := range written {
		fmt.Fprintln(out, p)
	}
	return nil
}

func listSessions(path string, out io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return withSQLite(path, func(db *gorm.DB) error {
		sessions, err := gormstore.Sessions(db)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Fprintf(out, "%s  %-20s %-10s %s  %d frames\n",
				s.UUID, s.Name, s.Vehicle, s.StartTime.UTC().Format("2006-01-02 15:04:05"), s.FrameCount)
		}
		return nil
	})
}
