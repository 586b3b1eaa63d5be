package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE notes (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				deleted_at TIMESTAMP
			);

			CREATE INDEX idx_notes_user_id ON notes(user_id);

			CREATE TABLE itineraries (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				note_id TEXT NOT NULL REFERENCES notes(id),
				version INTEGER NOT NULL CHECK (version > 0),
				status TEXT NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				request_id TEXT NOT NULL,
				preferences TEXT,
				route TEXT,
				title TEXT NOT NULL DEFAULT '',
				total_distance_km REAL NOT NULL DEFAULT 0,
				total_duration_min INTEGER NOT NULL DEFAULT 0,
				progress INTEGER NOT NULL DEFAULT 0,
				message TEXT NOT NULL DEFAULT '',
				failure_kind TEXT NOT NULL DEFAULT '',
				prompt_tokens INTEGER NOT NULL DEFAULT 0,
				completion_tokens INTEGER NOT NULL DEFAULT 0,
				estimated_cost_usd REAL NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				started_at TIMESTAMP,
				finished_at TIMESTAMP,
				cancelled_at TIMESTAMP,
				deleted_at TIMESTAMP,

				CHECK (status <> 'completed' OR route IS NOT NULL)
			);

			CREATE UNIQUE INDEX idx_itineraries_user_running ON itineraries(user_id) WHERE status = 'running';
			CREATE UNIQUE INDEX idx_itineraries_user_request ON itineraries(user_id, request_id);
			CREATE UNIQUE INDEX idx_itineraries_note_version ON itineraries(note_id, version);
			CREATE INDEX idx_itineraries_status_started_at ON itineraries(status, started_at);
		`,
	}
}
