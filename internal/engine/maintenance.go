package engine

import (
	"cmp"
	"math"
	"slices"

	"github.com/sells-group/opterra/internal/model"
)

// schedule lists the maintenance tasks, infrastructure first.
func schedule(f facts) []model.MaintenanceTask {
	tasks := infrastructureTasks(f)

	if f.hasTank() {
		tasks = append(tasks, flushTask(f), anodeTask(f))
	} else {
		tasks = append(tasks, timed(model.TaskDescale, "Descale heat exchanger", f.descaleMonths()))
	}

	if f.in.fuel == model.FuelHybrid {
		tasks = append(tasks, flagTask(model.TaskFilter, "Clean heat-pump air filter", f.in.filterDirty, 3))
		tasks = append(tasks, flagTask(model.TaskDrain, "Clear condensate drain", f.in.drainBlocked, 6))
	}

	if f.in.softener && f.in.carbonFilter {
		tasks = append(tasks, timed(model.TaskFilter, "Replace softener carbon filter", 12-int(math.Round(f.in.ysCarbon*12))))
	}

	sortTasks(tasks)
	return tasks
}

func infrastructureTasks(f facts) []model.MaintenanceTask {
	var out []model.MaintenanceTask
	infra := func(title string, urgency model.TaskUrgency) {
		out = append(out, model.MaintenanceTask{
			Type:           model.TaskInfrastructure,
			Title:          title,
			Urgency:        urgency,
			Infrastructure: true,
		})
	}

	if f.criticalPressure() {
		if f.in.hasPRV {
			infra("Replace failing pressure-reducing valve", model.TaskOverdue)
		} else {
			infra("Install pressure-reducing valve", model.TaskOverdue)
		}
	}
	if f.in.closedLoop {
		switch f.in.expansion {
		case model.ExpansionMissing:
			infra("Install thermal expansion tank", model.TaskOverdue)
		case model.ExpansionWaterlogged:
			infra("Replace waterlogged expansion tank", model.TaskDue)
		}
	}
	if f.minorLeak() {
		infra("Repair leaking "+leakLabel(f.in.leakSource), model.TaskOverdue)
	}
	return out
}

// flushTask never comes due once the sediment is locked in place.
func flushTask(f facts) model.MaintenanceTask {
	const title = "Flush tank sediment"
	sed, rate := f.wear.sediment, f.wear.sedimentRate

	switch {
	case f.flushLocked():
		return model.MaintenanceTask{Type: model.TaskFlush, Title: title, Urgency: model.TaskLocked, Locked: true}
	case f.sedimentDebt():
		months := 1
		if rate > 0 {
			months = max(1, int(math.Round((sed-f.p.SedimentDebt)/rate*12)))
		}
		return model.MaintenanceTask{Type: model.TaskFlush, Title: title, MonthsUntilDue: -months, Urgency: model.TaskOverdue}
	case sed > f.p.SedimentFlushDue:
		return timed(model.TaskFlush, title, 0)
	}

	months := 12 - int(math.Round(f.in.ysFlush*12))
	if rate > 0 {
		months = min(months, int(math.Floor((f.p.SedimentFlushDue-sed)/rate*12)))
	}
	return timed(model.TaskFlush, title, months)
}

func anodeTask(f facts) model.MaintenanceTask {
	const title = "Replace anode rod"
	shield := f.wear.shield
	switch {
	case shield <= 0:
		months := int(math.Round(shield * 12))
		if months >= 0 {
			months = -1
		}
		return timed(model.TaskAnode, title, months)
	case shield < 1:
		return timed(model.TaskAnode, title, 0)
	default:
		return timed(model.TaskAnode, title, int(math.Round((shield-1)*12)))
	}
}

// flagTask is due now when the observed flag is set, otherwise at the
// routine interval.
func flagTask(t model.TaskType, title string, flagged bool, interval int) model.MaintenanceTask {
	if flagged {
		return timed(t, title, 0)
	}
	return timed(t, title, interval)
}

func timed(t model.TaskType, title string, months int) model.MaintenanceTask {
	return model.MaintenanceTask{Type: t, Title: title, MonthsUntilDue: months, Urgency: urgencyFor(months)}
}

func urgencyFor(months int) model.TaskUrgency {
	switch {
	case months < 0:
		return model.TaskOverdue
	case months <= 1:
		return model.TaskDue
	case months <= 6:
		return model.TaskSchedule
	default:
		return model.TaskUpcoming
	}
}

func sortTasks(tasks []model.MaintenanceTask) {
	slices.SortStableFunc(tasks, func(a, b model.MaintenanceTask) int {
		if a.Infrastructure != b.Infrastructure {
			if a.Infrastructure {
				return -1
			}
			return 1
		}
		if a.Infrastructure {
			if c := cmp.Compare(a.Urgency.Rank(), b.Urgency.Rank()); c != 0 {
				return c
			}
		}
		return cmp.Or(
			cmp.Compare(a.MonthsUntilDue, b.MonthsUntilDue),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Title, b.Title),
		)
	})
}
