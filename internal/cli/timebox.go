package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/akarpov/deskpad/internal/models"
)

func (a *App) showTimeBox() {
	tb := a.store.TimeBox()
	fmt.Fprintf(a.out, "Time box for %s\n", tb.Date)
	for hour := models.TimeBoxFirstHour; hour <= models.TimeBoxLastHour; hour++ {
		pair := tb.Entries[models.HourKey(hour)]
		if pair.Slot1 == "" && pair.Slot2 == "" {
			continue
		}
		fmt.Fprintf(a.out, "%5d:00  %-30s | %s\n", hour, pair.Slot1, pair.Slot2)
	}
}

func (a *App) parseHourSlot(args []string) (int, int, bool) {
	if len(args) < 2 {
		fmt.Fprintf(a.out, "Usage: <command> <hour %d-%d> <slot 1|2> ...\n",
			models.TimeBoxFirstHour, models.TimeBoxLastHour)
		return 0, 0, false
	}
	hour, err := strconv.Atoi(args[0])
	if err != nil || hour < models.TimeBoxFirstHour || hour > models.TimeBoxLastHour {
		fmt.Fprintf(a.out, "Hour must be %d..%d\n", models.TimeBoxFirstHour, models.TimeBoxLastHour)
		return 0, 0, false
	}
	slot, err := strconv.Atoi(args[1])
	if err != nil || (slot != 1 && slot != 2) {
		fmt.Fprintln(a.out, "Slot must be 1 or 2")
		return 0, 0, false
	}
	return hour, slot, true
}

func (a *App) setTimeBoxEntry(ctx context.Context, args []string) {
	hour, slot, ok := a.parseHourSlot(args)
	if !ok {
		return
	}

	text, err := GetSimpleText(a.reader, fmt.Sprintf("Entry for %d:00 slot %d (empty clears)", hour, slot), a.out)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return
	}
	if err := a.store.UpdateTimeBoxEntry(ctx, hour, slot, text); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}

func (a *App) setTimeBoxColor(ctx context.Context, args []string) {
	hour, slot, ok := a.parseHourSlot(args)
	if !ok {
		return
	}
	color := ""
	if len(args) > 2 {
		color = args[2]
	}
	if err := a.store.UpdateTimeBoxColor(ctx, hour, slot, color); err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
}
