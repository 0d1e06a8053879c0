package store

const schema = `
CREATE TABLE IF NOT EXISTS parks (
    id          TEXT PRIMARY KEY,
    fullName    TEXT,
    parkCode    TEXT,
    states      TEXT,
    description TEXT,
    latitude    REAL NOT NULL DEFAULT 0,
    longitude   REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_parks_code ON parks(parkCode);

CREATE TABLE IF NOT EXISTS activities (
    park_id     TEXT,
    activity_id TEXT,
    name        TEXT,
    PRIMARY KEY (park_id, activity_id)
);

CREATE TABLE IF NOT EXISTS amenities (
    id   TEXT PRIMARY KEY,
    name TEXT
);

CREATE TABLE IF NOT EXISTS park_amenities (
    park_code  TEXT,
    amenity_id TEXT,
    PRIMARY KEY (park_code, amenity_id)
);

CREATE INDEX IF NOT EXISTS idx_park_amenities_amenity ON park_amenities(amenity_id);

CREATE TABLE IF NOT EXISTS park_news (
    id           TEXT PRIMARY KEY,
    park_code    TEXT NOT NULL,
    feed         TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    published_at DATETIME NOT NULL,
    collected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_park_news_park ON park_news(park_code);
`

// Tables lists the tables counted by Stats, in report order.
var Tables = []string{"parks", "activities", "amenities", "park_amenities", "park_news"}
