package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/report"
	"github.com/krishd9895/multi-op-bot-v5/internal/storage"
)

// handleDownloadActivities serves /dnact: a CSV of one month plus a tour-day
// summary against the monthly requirement.
func (h *Handler) handleDownloadActivities(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	month, year, usage := monthYearArgs(msg,
		"❌ Please specify month and year. Usage: /dnact <month_number> <year> (e.g., /dnact 6 2024)")
	if usage != "" {
		h.send(chatID, usage)
		return
	}
	acts, err := h.monthActivities(ctx, userID, year, int(month))
	if err != nil {
		h.send(chatID, msgStoreFailure)
		return
	}
	if len(acts) == 0 {
		h.send(chatID, fmt.Sprintf("❌ No activities found for month %d and year %d.", month, year))
		return
	}

	tourDays := report.TourDays(acts)
	h.sendMarkdown(chatID, report.Summary(month, year, tourDays))

	data, err := report.CSV(acts)
	if err != nil {
		h.Log.Error("build csv", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	filename := fmt.Sprintf("tour_activities_%d_%d_%s.csv", month, year, h.Now().Format("20060102"))
	h.sendDocument(chatID, filename, data,
		fmt.Sprintf("📋 Tour Activities Report\n%d activities exported", len(acts)))
}

// handleTourDiary serves /td: the formatted month workbook.
func (h *Handler) handleTourDiary(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	month, year, usage := monthYearArgs(msg,
		"❌ Please specify month and year. Usage: /td <month_number> <year> (e.g., /td 6 2024)")
	if usage != "" {
		h.send(chatID, usage)
		return
	}
	if err := h.Store.MigrateActivities(ctx, userID); err != nil {
		h.Log.Error("migrate activities", "user", userID, "err", err)
	}
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.send(chatID, msgNoActivities)
		return
	}

	data, tourDays, err := report.MonthlyWorkbook(report.WorkbookParams{
		UserName:     displayName(msg.From),
		Role:         u.Role,
		Headquarters: u.HQ(),
		Year:         year,
		Month:        month,
		Activities:   u.MonthActivities(strconv.Itoa(year), strconv.Itoa(int(month))),
		Holidays:     u.PublicHolidays,
		Loc:          h.Loc,
	})
	if err != nil {
		h.Log.Error("build workbook", "user", userID, "err", err)
		h.send(chatID, "❌ Internal error creating Excel file.")
		return
	}
	h.sendDocument(chatID, report.WorkbookFilename(month, year), data,
		fmt.Sprintf("📒 Tour Diary for %s %d\nDays toured: %d", month, year, tourDays))
}

func (h *Handler) monthActivities(ctx context.Context, userID int64, year, month int) ([]models.Activity, error) {
	if err := h.Store.MigrateActivities(ctx, userID); err != nil {
		h.Log.Error("migrate activities", "user", userID, "err", err)
	}
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		h.Log.Error("get user", "user", userID, "err", err)
		return nil, err
	}
	return u.MonthActivities(strconv.Itoa(year), strconv.Itoa(month)), nil
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = strings.TrimPrefix(u.UserName, "@")
	}
	if name == "" {
		name = "User"
	}
	return name
}
