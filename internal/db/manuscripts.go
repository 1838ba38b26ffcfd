package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fablecraft/loom/internal/manuscript"
)

// SaveManuscript replaces the stored manuscript with mf. Chapters, refs,
// characters and locations are rewritten in one transaction.
func (d *DB) SaveManuscript(mf *manuscript.File) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("saving manuscript: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO manuscript (id, title, author, created_at, updated_at)
		VALUES ('manuscript', ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title=excluded.title, author=excluded.author, updated_at=excluded.updated_at
	`, mf.Title, mf.Author, now, now); err != nil {
		return fmt.Errorf("saving manuscript row: %w", err)
	}

	for _, table := range []string{"chapter_refs", "chapters", "characters", "locations"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for i, ch := range mf.Chapters {
		if _, err := tx.Exec(`
			INSERT INTO chapters (id, position, title, content, pov, timeframe, tension,
				locations, major_events, tech_concepts, arc_tags,
				introduces, required_knowledge, continuity_rules)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ch.ID, i, ch.Title, ch.Content, ch.Metadata.POV, ch.Metadata.Timeframe,
			ch.Metadata.TensionLevel,
			marshalList(ch.Metadata.Locations), marshalList(ch.Metadata.MajorEvents),
			marshalList(ch.Metadata.TechConcepts), marshalList(ch.Metadata.ArcTags),
			marshalList(ch.Dependencies.Introduces), marshalList(ch.Dependencies.RequiredKnowledge),
			marshalList(ch.Dependencies.ContinuityRules)); err != nil {
			return fmt.Errorf("saving chapter %s: %w", ch.ID, err)
		}
		for _, ref := range ch.Dependencies.References {
			if _, err := tx.Exec(`
				INSERT INTO chapter_refs (chapter_id, target_id, ref_type, strength, description)
				VALUES (?, ?, ?, ?, ?)
			`, ch.ID, ref.TargetChapterID, ref.Type, ref.Strength, ref.Description); err != nil {
				return fmt.Errorf("saving reference %s -> %s: %w", ch.ID, ref.TargetChapterID, err)
			}
		}
	}

	for _, c := range mf.Characters {
		if _, err := tx.Exec(`
			INSERT INTO characters (id, name, first_appearance, tier) VALUES (?, ?, ?, ?)
		`, c.ID, c.Name, c.FirstAppearance, c.Tier); err != nil {
			return fmt.Errorf("saving character %s: %w", c.ID, err)
		}
	}
	for _, l := range mf.Locations {
		if _, err := tx.Exec(`
			INSERT INTO locations (id, name, first_appearance, tier) VALUES (?, ?, ?, ?)
		`, l.ID, l.Name, l.FirstAppearance, l.Tier); err != nil {
			return fmt.Errorf("saving location %s: %w", l.ID, err)
		}
	}

	return tx.Commit()
}

// LoadManuscript reads the stored manuscript back into a File plus a
// validated Snapshot
func (d *DB) LoadManuscript() (*manuscript.File, *manuscript.Snapshot, error) {
	var mf manuscript.File
	err := d.conn.QueryRow(`SELECT title, COALESCE(author, '') FROM manuscript WHERE id = 'manuscript'`).
		Scan(&mf.Title, &mf.Author)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("no manuscript imported yet (run: loom import <file>)")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading manuscript: %w", err)
	}

	rows, err := d.conn.Query(`
		SELECT id, title, COALESCE(content, ''), COALESCE(pov, ''), COALESCE(timeframe, ''), tension,
		       locations, major_events, tech_concepts, arc_tags,
		       introduces, required_knowledge, continuity_rules
		FROM chapters ORDER BY position
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("loading chapters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("loading chapters: %w", err)
		}
		mf.Chapters = append(mf.Chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("loading chapters: %w", err)
	}

	if err := d.loadReferences(mf.Chapters); err != nil {
		return nil, nil, err
	}
	if mf.Characters, err = d.loadCharacters(); err != nil {
		return nil, nil, err
	}
	if mf.Locations, err = d.loadLocations(); err != nil {
		return nil, nil, err
	}

	snap := manuscript.NewSnapshot(mf.Chapters, mf.Characters, mf.Locations)
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}
	return &mf, snap, nil
}

func scanChapter(scanner interface{ Scan(dest ...any) error }) (*manuscript.Chapter, error) {
	var ch manuscript.Chapter
	var locations, majorEvents, techConcepts, arcTags, introduces, required, continuity sql.NullString
	err := scanner.Scan(
		&ch.ID, &ch.Title, &ch.Content, &ch.Metadata.POV, &ch.Metadata.Timeframe,
		&ch.Metadata.TensionLevel,
		&locations, &majorEvents, &techConcepts, &arcTags,
		&introduces, &required, &continuity,
	)
	if err != nil {
		return nil, err
	}
	ch.Metadata.Locations = unmarshalList(locations)
	ch.Metadata.MajorEvents = unmarshalList(majorEvents)
	ch.Metadata.TechConcepts = unmarshalList(techConcepts)
	ch.Metadata.ArcTags = unmarshalList(arcTags)
	ch.Dependencies.Introduces = unmarshalList(introduces)
	ch.Dependencies.RequiredKnowledge = unmarshalList(required)
	ch.Dependencies.ContinuityRules = unmarshalList(continuity)
	return &ch, nil
}

func (d *DB) loadReferences(chapters []*manuscript.Chapter) error {
	byID := make(map[string]*manuscript.Chapter, len(chapters))
	for _, ch := range chapters {
		byID[ch.ID] = ch
	}
	rows, err := d.conn.Query(`
		SELECT chapter_id, target_id, ref_type, strength, COALESCE(description, '')
		FROM chapter_refs ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("loading references: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var chapterID string
		var ref manuscript.Reference
		if err := rows.Scan(&chapterID, &ref.TargetChapterID, &ref.Type, &ref.Strength, &ref.Description); err != nil {
			return fmt.Errorf("loading references: %w", err)
		}
		if ch, ok := byID[chapterID]; ok {
			ch.Dependencies.References = append(ch.Dependencies.References, ref)
		}
	}
	return rows.Err()
}

func (d *DB) loadCharacters() ([]*manuscript.Character, error) {
	rows, err := d.conn.Query(`SELECT id, name, COALESCE(first_appearance, ''), COALESCE(tier, '') FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading characters: %w", err)
	}
	defer rows.Close()
	var out []*manuscript.Character
	for rows.Next() {
		var c manuscript.Character
		if err := rows.Scan(&c.ID, &c.Name, &c.FirstAppearance, &c.Tier); err != nil {
			return nil, fmt.Errorf("loading characters: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (d *DB) loadLocations() ([]*manuscript.Location, error) {
	rows, err := d.conn.Query(`SELECT id, name, COALESCE(first_appearance, ''), COALESCE(tier, '') FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	defer rows.Close()
	var out []*manuscript.Location
	for rows.Next() {
		var l manuscript.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.FirstAppearance, &l.Tier); err != nil {
			return nil, fmt.Errorf("loading locations: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func marshalList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalList(s sql.NullString) []string {
	if !s.Valid || s.String == "" || s.String == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil
	}
	return out
}
