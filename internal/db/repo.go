package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carebook-chatbot/pkg"
)

// Repository wraps database operations for turns, doctors, availability and
// patient context. A single postgres database backs all of it.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// SaveTurn appends a chat turn and trims the patient's tail to the retained
// window so the store never grows past the last few turns per patient.
func (r *Repository) SaveTurn(ctx context.Context, t pkg.Turn) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO turns (id, patient_id, role, content, language, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.PatientID, t.Role, t.Content, t.Language, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db: insert turn: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`DELETE FROM turns
         WHERE patient_id = $1
           AND id NOT IN (
               SELECT id FROM turns
               WHERE patient_id = $1
               ORDER BY created_at DESC
               LIMIT $2
           )`,
		t.PatientID, turnRetention,
	)
	if err != nil {
		return fmt.Errorf("db: trim turns: %w", err)
	}
	return nil
}

const turnRetention = 10

// LoadTurns returns the most recent turns for a patient in chronological
// order, capped at limit.
func (r *Repository) LoadTurns(ctx context.Context, patientID string, limit int) ([]pkg.Turn, error) {
	if limit <= 0 || limit > turnRetention {
		limit = turnRetention
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, patient_id, role, content, language, created_at
         FROM turns
         WHERE patient_id = $1
         ORDER BY created_at DESC
         LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("db: load turns: %w", err)
	}
	defer rows.Close()
	var out []pkg.Turn
	for rows.Next() {
		var t pkg.Turn
		if err := rows.Scan(&t.ID, &t.PatientID, &t.Role, &t.Content, &t.Language, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DoctorsBySpecialty lists doctors for a specialty key ranked by rating, then
// experience.
func (r *Repository) DoctorsBySpecialty(ctx context.Context, key string) ([]pkg.Doctor, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, specialty_key, fee, rating, experience_years
         FROM doctors
         WHERE specialty_key = $1
         ORDER BY rating DESC, experience_years DESC`, key)
	if err != nil {
		return nil, fmt.Errorf("db: doctors by specialty: %w", err)
	}
	defer rows.Close()
	var out []pkg.Doctor
	for rows.Next() {
		var d pkg.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.SpecialtyKey, &d.Fee, &d.Rating, &d.ExperienceYears); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Availability builds the calendar snapshot for a doctor covering the next
// daysAhead days, grouped into days and sections. Already-booked slots come
// back disabled rather than removed so the UI can show them greyed out.
func (r *Repository) Availability(ctx context.Context, doctorID string, daysAhead int) ([]pkg.Day, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT a.slot_date, a.slot_time, a.section, a.enabled,
                EXISTS (
                    SELECT 1 FROM bookings b
                    WHERE b.doctor_id = a.doctor_id
                      AND b.slot_date = a.slot_date
                      AND b.slot_time = a.slot_time
                ) AS taken
         FROM availability a
         WHERE a.doctor_id = $1
           AND a.slot_date >= CURRENT_DATE
           AND a.slot_date < CURRENT_DATE + $2 * INTERVAL '1 day'
         ORDER BY a.slot_date, a.section, a.slot_time`, doctorID, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("db: availability: %w", err)
	}
	defer rows.Close()

	var (
		days    []pkg.Day
		curDay  *pkg.Day
		curSect *pkg.Section
	)
	for rows.Next() {
		var (
			date    time.Time
			slot    time.Time
			section string
			enabled bool
			taken   bool
		)
		if err := rows.Scan(&date, &slot, &section, &enabled, &taken); err != nil {
			return nil, err
		}
		dateISO := date.Format("2006-01-02")
		if curDay == nil || curDay.DateISO != dateISO {
			days = append(days, pkg.Day{DateISO: dateISO, Enabled: true})
			curDay = &days[len(days)-1]
			curSect = nil
		}
		if curSect == nil || curSect.Title != section {
			curDay.Sections = append(curDay.Sections, pkg.Section{Title: section})
			curSect = &curDay.Sections[len(curDay.Sections)-1]
		}
		curSect.Slots = append(curSect.Slots, pkg.Slot{
			Label:    slot.Format("3:04 PM"),
			Value:    slot.Format("15:04"),
			Disabled: !enabled || taken,
		})
	}
	return days, rows.Err()
}

// HasUpcomingBooking reports whether the patient has a booking today or
// later.
func (r *Repository) HasUpcomingBooking(ctx context.Context, patientID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (
            SELECT 1 FROM bookings
            WHERE patient_id = $1 AND slot_date >= CURRENT_DATE
         )`, patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db: upcoming booking: %w", err)
	}
	return exists, nil
}

// Prescriptions returns the patient's prescription rows, newest first.
func (r *Repository) Prescriptions(ctx context.Context, patientID string) ([]pkg.Prescription, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT medicine, dosage, frequency, prescribed_on
         FROM prescriptions
         WHERE patient_id = $1
         ORDER BY prescribed_on DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("db: prescriptions: %w", err)
	}
	defer rows.Close()
	var out []pkg.Prescription
	for rows.Next() {
		var p pkg.Prescription
		if err := rows.Scan(&p.Medicine, &p.Dosage, &p.Frequency, &p.PrescribedOn); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RiskContext loads the risk collaborator's snapshot for a patient. A missing
// profile is not an error; it yields an empty context.
func (r *Repository) RiskContext(ctx context.Context, patientID string) (pkg.RiskContext, error) {
	var (
		rc       pkg.RiskContext
		topItems string
		labsJSON string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT risk_level, category, top_items, labs_json
         FROM risk_profiles
         WHERE patient_id = $1`, patientID).
		Scan(&rc.RiskLevel, &rc.Category, &topItems, &labsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return pkg.RiskContext{}, nil
	}
	if err != nil {
		return pkg.RiskContext{}, fmt.Errorf("db: risk context: %w", err)
	}
	if topItems != "" {
		for _, item := range strings.Split(topItems, ",") {
			if item = strings.TrimSpace(item); item != "" {
				rc.TopPredictedItems = append(rc.TopPredictedItems, item)
			}
		}
	}
	if labsJSON != "" {
		if err := json.Unmarshal([]byte(labsJSON), &rc.LastLabs); err != nil {
			rc.LastLabs = nil
		}
	}
	return rc, nil
}
