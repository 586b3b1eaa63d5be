package postgresql

const (
	indexUserRunning = "idx_itineraries_user_running"
	indexUserRequest = "idx_itineraries_user_request"
	indexNoteVersion = "idx_itineraries_note_version"
)

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Trip notes, owned by the notes service and mirrored here for lookups
			CREATE TABLE notes (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				body TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_notes_user_id ON notes(user_id);

			-- One row per generation attempt
			CREATE TABLE itineraries (
				id VARCHAR(64) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				note_id VARCHAR(255) NOT NULL REFERENCES notes(id),
				version INTEGER NOT NULL CHECK (version > 0),
				status VARCHAR(20) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				request_id VARCHAR(255) NOT NULL,
				preferences JSONB,
				route JSONB,
				title TEXT NOT NULL DEFAULT '',
				total_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
				total_duration_min INTEGER NOT NULL DEFAULT 0,
				progress INTEGER NOT NULL DEFAULT 0,
				message TEXT NOT NULL DEFAULT '',
				failure_kind VARCHAR(50) NOT NULL DEFAULT '',
				prompt_tokens INTEGER NOT NULL DEFAULT 0,
				completion_tokens INTEGER NOT NULL DEFAULT 0,
				estimated_cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE,
				cancelled_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE,

				CONSTRAINT itineraries_completed_has_route CHECK (status <> 'completed' OR route IS NOT NULL)
			);

			CREATE UNIQUE INDEX ` + indexUserRunning + ` ON itineraries(user_id) WHERE status = 'running';
			CREATE UNIQUE INDEX ` + indexUserRequest + ` ON itineraries(user_id, request_id);
			CREATE UNIQUE INDEX ` + indexNoteVersion + ` ON itineraries(note_id, version);
			CREATE INDEX idx_itineraries_status_started_at ON itineraries(status, started_at);
		`,
	}
}
