package models

// RoomRanking is a dashboard row for the most reserved rooms.
type RoomRanking struct {
	Name              string `db:"name" json:"name"`
	Module            string `db:"module" json:"module"`
	TotalReservations int    `db:"total_reservations" json:"total_reservations"`
}

// WeekdayCount buckets reservations by day of week.
type WeekdayCount struct {
	Day   string `db:"day" json:"day"`
	Total int    `db:"total" json:"total"`
}

// DashboardStatistics aggregates the figures shown on the landing dashboard.
type DashboardStatistics struct {
	TotalRooms         int            `json:"total_rooms"`
	OccupiedRooms      int            `json:"occupied_rooms"`
	FreeRooms          int            `json:"free_rooms"`
	ActiveReservations int            `json:"active_reservations"`
	TodayReservations  int            `json:"today_reservations"`
	WeekReservations   int            `json:"week_reservations"`
	TotalUsers         int            `json:"total_users"`
	DamagedResources   int            `json:"damaged_resources"`
	TopRooms           []RoomRanking  `json:"top_rooms"`
	ReservationsByDay  []WeekdayCount `json:"reservations_by_day"`
}
