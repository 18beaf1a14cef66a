package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// RunMigrations creates missing tables and constraints. Statements are
// idempotent so the runner is safe to execute on every boot.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	log.Println("running database migrations")

	stmts := []struct {
		name string
		sql  string
	}{
		{"persons", `
			CREATE TABLE IF NOT EXISTS persons (
				id            BIGSERIAL PRIMARY KEY,
				first_name    TEXT NOT NULL,
				last_name     TEXT NOT NULL,
				national_code TEXT NOT NULL UNIQUE,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"accounts", `
			CREATE TABLE IF NOT EXISTS accounts (
				id            BIGSERIAL PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				person_id     BIGINT NOT NULL UNIQUE REFERENCES persons(id),
				is_active     BOOLEAN NOT NULL DEFAULT TRUE,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"roles", `
			CREATE TABLE IF NOT EXISTS roles (
				id   BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			)`},
		{"person_roles", `
			CREATE TABLE IF NOT EXISTS person_roles (
				person_id BIGINT NOT NULL REFERENCES persons(id),
				role_id   BIGINT NOT NULL REFERENCES roles(id),
				PRIMARY KEY (person_id, role_id)
			)`},
		{"majors", `
			CREATE TABLE IF NOT EXISTS majors (
				id         BIGSERIAL PRIMARY KEY,
				name       TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"courses", `
			CREATE TABLE IF NOT EXISTS courses (
				id         BIGSERIAL PRIMARY KEY,
				major_id   BIGINT NOT NULL REFERENCES majors(id),
				title      TEXT NOT NULL,
				units      INT NOT NULL DEFAULT 3,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"terms", `
			CREATE TABLE IF NOT EXISTS terms (
				id         BIGSERIAL PRIMARY KEY,
				title      TEXT NOT NULL,
				start_date DATE NOT NULL,
				end_date   DATE NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"academic_calendars", `
			CREATE TABLE IF NOT EXISTS academic_calendars (
				id                 BIGSERIAL PRIMARY KEY,
				term_id            BIGINT NOT NULL UNIQUE REFERENCES terms(id),
				registration_start TIMESTAMPTZ NOT NULL,
				registration_end   TIMESTAMPTZ NOT NULL,
				add_drop_start     TIMESTAMPTZ,
				add_drop_end       TIMESTAMPTZ
			)`},
		{"offered_courses", `
			CREATE TABLE IF NOT EXISTS offered_courses (
				id         BIGSERIAL PRIMARY KEY,
				course_id  BIGINT NOT NULL REFERENCES courses(id),
				teacher_id BIGINT NOT NULL REFERENCES persons(id),
				term_id    BIGINT NOT NULL REFERENCES terms(id),
				capacity   INT NOT NULL DEFAULT 30,
				week_day   INT NOT NULL DEFAULT 0,
				start_time TIME NOT NULL DEFAULT '08:00',
				end_time   TIME NOT NULL DEFAULT '10:00',
				location   TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"offered_course_students", `
			CREATE TABLE IF NOT EXISTS offered_course_students (
				offered_course_id BIGINT NOT NULL REFERENCES offered_courses(id),
				student_id        BIGINT NOT NULL REFERENCES persons(id),
				enrolled_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				PRIMARY KEY (offered_course_id, student_id)
			)`},
		{"questions", `
			CREATE TABLE IF NOT EXISTS questions (
				id            BIGSERIAL PRIMARY KEY,
				course_id     BIGINT NOT NULL REFERENCES courses(id),
				question_type TEXT NOT NULL CHECK (question_type IN ('ESSAY','TEST')),
				title         TEXT NOT NULL,
				body          TEXT NOT NULL,
				default_score DOUBLE PRECISION NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"question_options", `
			CREATE TABLE IF NOT EXISTS question_options (
				id          BIGSERIAL PRIMARY KEY,
				question_id BIGINT NOT NULL REFERENCES questions(id),
				body        TEXT NOT NULL,
				is_correct  BOOLEAN NOT NULL DEFAULT FALSE
			)`},
		{"exams", `
			CREATE TABLE IF NOT EXISTS exams (
				id                BIGSERIAL PRIMARY KEY,
				offered_course_id BIGINT NOT NULL REFERENCES offered_courses(id),
				title             TEXT NOT NULL,
				description       TEXT,
				start_at          TIMESTAMPTZ NOT NULL,
				end_at            TIMESTAMPTZ NOT NULL,
				total_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
				deleted           BOOLEAN NOT NULL DEFAULT FALSE,
				created_by        BIGINT REFERENCES persons(id),
				created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
			)`},
		{"exam_questions", `
			CREATE TABLE IF NOT EXISTS exam_questions (
				id          BIGSERIAL PRIMARY KEY,
				exam_id     BIGINT NOT NULL REFERENCES exams(id),
				question_id BIGINT NOT NULL REFERENCES questions(id),
				score       DOUBLE PRECISION,
				UNIQUE (exam_id, question_id)
			)`},
		{"exam_instances", `
			CREATE TABLE IF NOT EXISTS exam_instances (
				id          BIGSERIAL PRIMARY KEY,
				reference   TEXT NOT NULL UNIQUE,
				exam_id     BIGINT NOT NULL REFERENCES exams(id),
				person_id   BIGINT NOT NULL REFERENCES persons(id),
				status      TEXT NOT NULL CHECK (status IN ('IN_PROGRESS','COMPLETED')),
				started_at  TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ,
				total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
				UNIQUE (exam_id, person_id)
			)`},
		{"answers", `
			CREATE TABLE IF NOT EXISTS answers (
				id               BIGSERIAL PRIMARY KEY,
				exam_instance_id BIGINT NOT NULL REFERENCES exam_instances(id),
				exam_question_id BIGINT NOT NULL REFERENCES exam_questions(id),
				answer_type      TEXT NOT NULL CHECK (answer_type IN ('ESSAY','TEST')),
				option_id        BIGINT REFERENCES question_options(id),
				answer_text      TEXT,
				score            DOUBLE PRECISION,
				updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
				UNIQUE (exam_instance_id, exam_question_id)
			)`},
		{"seed roles", `
			INSERT INTO roles (name)
			VALUES ('ADMIN'), ('TEACHER'), ('STUDENT')
			ON CONFLICT (name) DO NOTHING`},
	}

	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("migrate %s: %w", st.name, err)
		}
	}

	log.Println("database migrations completed")
	return nil
}
