package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"romaneio-backend/internal/database"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"

	"github.com/rs/zerolog"
)

// The trail has two sinks: the local relational store, which is the queryable
// record, and the ActivityLog sheet, which the warehouse supervisors read
// next to the operational tabs. The sheet sink is best effort.
var (
	store sheets.Store
	names sheets.Names
	log   zerolog.Logger
)

const sheetTimeout = 10 * time.Second

func Init(s sheets.Store, n sheets.Names, l zerolog.Logger) {
	store = s
	names = n
	log = l
}

type Entry struct {
	UserName    string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Details     any
}

func Record(e Entry) error {
	detailsStr := "null"
	if e.Details != nil {
		if b, err := json.Marshal(e.Details); err == nil {
			detailsStr = string(b)
		}
	}

	row := models.AuditLog{
		UserName:    e.UserName,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		Description: e.Description,
		Details:     detailsStr,
	}

	if err := database.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("audit log could not be saved: %w", err)
	}

	if store != nil {
		go appendToSheet(e, detailsStr)
	}

	return nil
}

func appendToSheet(e Entry, details string) {
	ctx, cancel := context.WithTimeout(context.Background(), sheetTimeout)
	defer cancel()

	if err := store.EnsureSheet(ctx, names.Activity, sheets.ActivityHeaders); err != nil {
		log.Warn().Err(err).Msg("activity sheet unavailable, entry kept locally only")
		return
	}

	row := []string{
		time.Now().Format("2006-01-02 15:04:05"),
		e.UserName,
		string(e.Action),
		e.EntityType,
		e.EntityID,
		details,
		e.Description,
	}
	if err := store.Append(ctx, names.Activity, [][]string{row}); err != nil {
		log.Warn().Err(err).Str("entity_id", e.EntityID).
			Msg("activity sheet append failed, entry kept locally only")
	}
}
