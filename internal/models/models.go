package models

import "time"

// CreateActivityRequest - модель для создания активности
type CreateActivityRequest struct {
	VenueID         int64   `json:"venue_id" binding:"required"`
	Title           string  `json:"title" binding:"required"`
	Description     *string `json:"description"`
	Category        string  `json:"category" binding:"required"`
	AgeMin          int     `json:"age_min"`
	AgeMax          int     `json:"age_max"`
	CreditsPerChild int     `json:"credits_per_child" binding:"required,min=1"`
}

// CreateActivityResponse - модель ответа при создании активности
type CreateActivityResponse struct {
	ID int64 `json:"id"`
}

// ListActivitiesResponseItem - элемент списка активностей
type ListActivitiesResponseItem struct {
	ID              int64  `json:"id"`
	VenueID         int64  `json:"venue_id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	AgeMin          int    `json:"age_min"`
	AgeMax          int    `json:"age_max"`
	CreditsPerChild int    `json:"credits_per_child"`
}

// ListActivitiesResponse - список активностей
type ListActivitiesResponse []ListActivitiesResponseItem

// CreateSlotRequest - модель для создания слота
type CreateSlotRequest struct {
	ActivityID int64     `json:"activity_id" binding:"required"`
	StartsAt   time.Time `json:"starts_at" binding:"required"`
	EndsAt     time.Time `json:"ends_at" binding:"required"`
	Capacity   int       `json:"capacity" binding:"required,min=1"`
}

// CreateSlotResponse - модель ответа при создании слота
type CreateSlotResponse struct {
	ID int64 `json:"id"`
}

// SlotAvailabilityItem - слот со счётчиком занятых мест
type SlotAvailabilityItem struct {
	ID          int64     `json:"id"`
	ActivityID  int64     `json:"activity_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	Capacity    int       `json:"capacity"`
	BookedCount int       `json:"booked_count"`
	Status      string    `json:"status"`
}

// SlotAvailabilityResponse - список слотов с доступностью
type SlotAvailabilityResponse []SlotAvailabilityItem

// CreateBookingRequest - модель для создания бронирования
type CreateBookingRequest struct {
	SlotID   int64    `json:"slot_id" binding:"required"`
	ChildIDs []string `json:"child_ids" binding:"required,min=1"`
}

// CreateBookingResponse - модель ответа при создании бронирования
type CreateBookingResponse struct {
	ID           int64 `json:"id"`
	TotalCredits int   `json:"total_credits"`
}

// BookingResponse - бронирование с детьми и производным флагом canCancel
type BookingResponse struct {
	Booking
	CanCancelNow bool `json:"can_cancel"`
}

// ConfirmBookingRequest - модель для подтверждения бронирования площадкой
type ConfirmBookingRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// CancelBookingRequest - модель для отмены бронирования
type CancelBookingRequest struct {
	BookingID int64   `json:"booking_id" binding:"required"`
	Reason    *string `json:"reason"`
}

// CancelBookingResponse - итог отмены с эффектом по кредитам
type CancelBookingResponse struct {
	Booking          *Booking `json:"booking"`
	RefundedCredits  int      `json:"refunded_credits"`
	ForfeitedCredits int      `json:"forfeited_credits"`
}

// MarkAttendanceRequest - модель для отметки посещаемости ребёнка
type MarkAttendanceRequest struct {
	BookingChildID int64            `json:"booking_child_id" binding:"required"`
	Status         AttendanceStatus `json:"status" binding:"required"`
}

// JoinWaitlistRequest - модель для постановки в лист ожидания
type JoinWaitlistRequest struct {
	SlotID  int64  `json:"slot_id" binding:"required"`
	ChildID string `json:"child_id" binding:"required"`
}

// JoinWaitlistResponse - запись листа ожидания с назначенной позицией
type JoinWaitlistResponse struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

// ConvertWaitlistRequest - модель для конвертации уведомлённой записи в бронирование
type ConvertWaitlistRequest struct {
	EntryID int64 `json:"entry_id" binding:"required"`
}

// AllocateCreditsRequest - модель для месячного начисления кредитов (HR)
type AllocateCreditsRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Year   int   `json:"year" binding:"required"`
	Month  int   `json:"month" binding:"required,min=1,max=12"`
	Amount int   `json:"amount" binding:"required,min=1"`
}

// AdjustCreditsRequest - модель для ручной корректировки баланса
type AdjustCreditsRequest struct {
	AccountID   int64  `json:"account_id" binding:"required"`
	Amount      int    `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// CreditAccountResponse - счёт с производным остатком
type CreditAccountResponse struct {
	CreditAccount
	RemainingCredits int `json:"remaining_credits"`
}

// VenueReportResponse - агрегаты площадки, проекция поверх хранилища бронирований
type VenueReportResponse struct {
	VenueID        int64            `json:"venue_id"`
	Bookings       map[string]int64 `json:"bookings_by_status"`
	AttendanceRate float64          `json:"attendance_rate"`
	WaitlistDepth  int64            `json:"waitlist_depth"`
}

// CreditReportRow - строка HR-отчёта по кредитам сотрудника
type CreditReportRow struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Allocated int    `json:"allocated"`
	Used      int    `json:"used"`
	Expired   int    `json:"expired"`
	Remaining int    `json:"remaining"`
}

// CreditReportResponse - HR-отчёт по кредитам компании
type CreditReportResponse []CreditReportRow
