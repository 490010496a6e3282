package postgres

// schemaSQL is idempotent. Both unique constraints are declared so either can
// serve as an upsert conflict target.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS "registrants" (
	id          UUID PRIMARY KEY,
	vpa         TEXT NOT NULL,
	phone       TEXT,
	cc_no       TEXT,
	route_no    TEXT,
	name        TEXT,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT registrants_vpa_key UNIQUE (vpa),
	CONSTRAINT registrants_phone_vpa_key UNIQUE (phone, vpa)
);

CREATE INDEX IF NOT EXISTS registrants_inserted_at_idx ON "registrants" (inserted_at, id);
`
