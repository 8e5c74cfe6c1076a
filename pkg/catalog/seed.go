package catalog

import (
	"context"
	"fmt"
)

// sampleLines, sampleSpices and samplePerfumes populate a development
// catalog. Ids are fixed so seeded data is stable across runs.
var sampleLines = []Line{
	{1, "Citrus"}, {2, "Fruity"}, {3, "Green"}, {4, "Floral"},
	{5, "Woody"}, {6, "Musk"}, {7, "Spicy"}, {8, "Aquatic"},
}

var sampleSpices = []Spice{
	{ID: 101, Name: "Bergamot", NameKR: "베르가못", LineID: 1},
	{ID: 102, Name: "Lemon", NameKR: "레몬", LineID: 1},
	{ID: 201, Name: "Peach", NameKR: "복숭아", LineID: 2},
	{ID: 301, Name: "Fig Leaf", NameKR: "무화과 잎", LineID: 3},
	{ID: 401, Name: "Rose", NameKR: "장미", LineID: 4},
	{ID: 402, Name: "Jasmine", NameKR: "자스민", LineID: 4},
	{ID: 501, Name: "Sandalwood", NameKR: "샌달우드", LineID: 5},
	{ID: 502, Name: "Cedarwood", NameKR: "시더우드", LineID: 5},
	{ID: 601, Name: "White Musk", NameKR: "화이트 머스크", LineID: 6},
	{ID: 602, Name: "Ambrette", NameKR: "암브레트", LineID: 6},
	{ID: 701, Name: "Pink Pepper", NameKR: "핑크 페퍼", LineID: 7},
	{ID: 801, Name: "Sea Salt", NameKR: "바다 소금", LineID: 8},
}

type samplePerfume struct {
	Perfume
	middle []int64
}

var samplePerfumes = []samplePerfume{
	{Perfume{ID: 1, Name: "Santal 33", Brand: "Le Labo", Description: "Smoky sandalwood with leather."}, []int64{501, 502}},
	{Perfume{ID: 2, Name: "Musc Ravageur", Brand: "Frederic Malle", Description: "Warm musk with vanilla."}, []int64{601, 602}},
	{Perfume{ID: 3, Name: "Glossier You", Brand: "Glossier", Description: "Skin musk with pink pepper."}, []int64{601, 701}},
	{Perfume{ID: 4, Name: "Rose 31", Brand: "Le Labo", Description: "Spiced rose over cedar."}, []int64{401, 502}},
	{Perfume{ID: 5, Name: "Wood Sage & Sea Salt", Brand: "Jo Malone", Description: "Mineral, breezy woods."}, []int64{801, 502}},
	{Perfume{ID: 6, Name: "Philosykos", Brand: "Diptyque", Description: "Green fig from leaf to wood."}, []int64{301}},
	{Perfume{ID: 7, Name: "Neroli Portofino", Brand: "Tom Ford", Description: "Bright citrus cologne."}, []int64{101, 102}},
	{Perfume{ID: 8, Name: "Jasmin Rouge", Brand: "Tom Ford", Description: "Spiced jasmine."}, []int64{402, 701}},
}

// SeedSample inserts the development catalog when the line table is empty.
// It returns false when data was already present.
func (g *SQLGateway) SeedSample(ctx context.Context) (bool, error) {
	if err := g.checkOpen(); err != nil {
		return false, err
	}

	var count int
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM line`).Scan(&count); err != nil {
		return false, fmt.Errorf("count lines: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, l := range sampleLines {
		if _, err := tx.ExecContext(ctx, `INSERT INTO line (id, name) VALUES (?, ?)`, l.ID, l.Name); err != nil {
			return false, fmt.Errorf("seed line %d: %w", l.ID, err)
		}
	}
	for _, s := range sampleSpices {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO spice (id, name, name_kr, line_id) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, s.NameKR, s.LineID); err != nil {
			return false, fmt.Errorf("seed spice %d: %w", s.ID, err)
		}
	}
	for _, p := range samplePerfumes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product (id, name, brand, description) VALUES (?, ?, ?, ?)`,
			p.ID, p.Name, p.Brand, p.Description); err != nil {
			return false, fmt.Errorf("seed product %d: %w", p.ID, err)
		}
		for _, spiceID := range p.middle {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO note (product_id, spice_id, note_type) VALUES (?, ?, 'MIDDLE')`,
				p.ID, spiceID); err != nil {
				return false, fmt.Errorf("seed note %d/%d: %w", p.ID, spiceID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}
