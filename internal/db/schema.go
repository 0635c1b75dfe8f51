package db

import "fmt"

// schemaTemplate is the database schema initialization SQL. The HNSW index
// dimension must match the configured embedding model, so the schema is
// rendered per deployment via Schema().
const schemaTemplate = `
    -- ==========================================================================
    -- EPISODE TABLE (podcast catalog)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS episode SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON episode TYPE string;
    DEFINE FIELD IF NOT EXISTS summary ON episode TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS body ON episode TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS episode_type ON episode TYPE string DEFAULT "";
    DEFINE FIELD IF NOT EXISTS difficulty ON episode TYPE string DEFAULT "intermediate";
    DEFINE FIELD IF NOT EXISTS relevance ON episode TYPE string DEFAULT "low";
    DEFINE FIELD IF NOT EXISTS philosophers ON episode TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS themes ON episode TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS casual ON episode TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS position ON episode TYPE int;
    DEFINE FIELD IF NOT EXISTS embedding ON episode TYPE option<array<float>>;
    DEFINE FIELD IF NOT EXISTS created ON episode TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON episode TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS episode_url ON episode FIELDS url UNIQUE;
    DEFINE INDEX IF NOT EXISTS episode_position ON episode FIELDS position;
    DEFINE INDEX IF NOT EXISTS episode_philosophers ON episode FIELDS philosophers;
    DEFINE INDEX IF NOT EXISTS episode_themes ON episode FIELDS themes;
    DEFINE INDEX IF NOT EXISTS episode_embedding ON episode FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS episode_analyzer TOKENIZERS class FILTERS lowercase, ascii;
    DEFINE INDEX IF NOT EXISTS episode_title_ft ON episode FIELDS title FULLTEXT ANALYZER episode_analyzer BM25;
    DEFINE INDEX IF NOT EXISTS episode_summary_ft ON episode FIELDS summary FULLTEXT ANALYZER episode_analyzer BM25;
`

// Schema renders the schema SQL for the given embedding dimension.
func Schema(dimension int) string {
	return fmt.Sprintf(schemaTemplate, dimension)
}
