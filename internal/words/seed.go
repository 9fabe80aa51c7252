package words

import (
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
	"gorm.io/gorm"

	"impostor-server/internal/entities"
)

// Seed mirrors the loaded dataset into sqlite so the stats queries can
// join category keys to display names. Failures are logged only; the
// in-memory provider stays the source of truth for the game.
func (p *Provider) Seed(db *gorm.DB) {
	iter.ForEach(p.keys,
		func(keyPtr *string) {
			key := *keyPtr

			cat := entities.Category{Key: key, Name: p.names[key]}
			if tx := db.Save(&cat); tx.Error != nil {
				log.Error().Err(tx.Error).Str("category", key).Msg("seed category failed")
				return
			}

			for _, text := range p.words[key] {
				word := entities.Word{CategoryKey: key, Text: text}
				tx := db.Where(entities.Word{CategoryKey: key, Text: text}).FirstOrCreate(&word)
				if tx.Error != nil {
					log.Error().Err(tx.Error).Str("category", key).Msg("seed word failed")
					return
				}
			}
		})

	log.Info().Int("categories", len(p.keys)).Msg("word dataset seeded")
}
