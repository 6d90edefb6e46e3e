package store

const Schema = `
CREATE TABLE IF NOT EXISTS job_history (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	format TEXT NOT NULL,
	status TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_job_history_finished_at ON job_history(finished_at);
CREATE INDEX IF NOT EXISTS idx_job_history_status ON job_history(status);
`
