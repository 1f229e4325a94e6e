package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/aulanet/booking-api/internal/models"
)

// DashboardRepository aggregates statistics across rooms, reservations,
// users and resources for the landing dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new dashboard repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Statistics computes the dashboard figures. today and weekEnd are calendar
// dates (YYYY-MM-DD) bounding the "next week" window inclusively.
func (r *DashboardRepository) Statistics(ctx context.Context, today, weekEnd string) (*models.DashboardStatistics, error) {
	stats := &models.DashboardStatistics{}

	counts := []struct {
		dest  *int
		query string
		args  []interface{}
	}{
		{&stats.TotalRooms, `SELECT COUNT(*) FROM rooms`, nil},
		{&stats.OccupiedRooms, `SELECT COUNT(*) FROM rooms WHERE state = $1`, []interface{}{models.RoomStateOccupied}},
		{&stats.ActiveReservations, `SELECT COUNT(*) FROM reservations WHERE status = $1`, []interface{}{models.ReservationActive}},
		{&stats.TodayReservations, `SELECT COUNT(*) FROM reservations WHERE date = $1 AND status = $2`, []interface{}{today, models.ReservationActive}},
		{&stats.WeekReservations, `SELECT COUNT(*) FROM reservations WHERE date BETWEEN $1 AND $2 AND status = $3`, []interface{}{today, weekEnd, models.ReservationActive}},
		{&stats.TotalUsers, `SELECT COUNT(*) FROM users WHERE active = true`, nil},
		{&stats.DamagedResources, `SELECT COUNT(*) FROM resources WHERE state = $1`, []interface{}{models.ResourceDamaged}},
	}

	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, c.query, c.args...); err != nil {
			return nil, fmt.Errorf("dashboard count: %w", err)
		}
	}
	stats.FreeRooms = stats.TotalRooms - stats.OccupiedRooms

	const topRooms = `SELECT r.name, r.module, COUNT(res.id) AS total_reservations
		FROM rooms r
		LEFT JOIN reservations res ON res.room_id = r.id
		GROUP BY r.id
		ORDER BY total_reservations DESC
		LIMIT 5`
	if err := r.db.SelectContext(ctx, &stats.TopRooms, topRooms); err != nil {
		return nil, fmt.Errorf("dashboard top rooms: %w", err)
	}

	const byDay = `SELECT trim(to_char(date::date, 'Day')) AS day, COUNT(*) AS total
		FROM reservations
		WHERE date::date >= CURRENT_DATE - INTERVAL '30 days'
		GROUP BY day, extract(isodow from date::date)
		ORDER BY extract(isodow from date::date)`
	if err := r.db.SelectContext(ctx, &stats.ReservationsByDay, byDay); err != nil {
		return nil, fmt.Errorf("dashboard reservations by day: %w", err)
	}

	return stats, nil
}
