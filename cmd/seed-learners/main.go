package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gargallo/neolingus-backend/internal/config"
	"github.com/gargallo/neolingus-backend/internal/database"
	"github.com/gargallo/neolingus-backend/internal/logger"
	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/gargallo/neolingus-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a batch of demo learners for load testing and local development.
// Every learner gets the same password: "neolingus".
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	learnerRepo := repository.NewLearnerRepository(pool)

	names := []string{
		"Carles Ferrer", "Maria Soler", "Pau Martí", "Núria Ibáñez", "Joan Esteve",
		"Aina Navarro", "Vicent Alcaraz", "Carme Bosch", "Ferran Pons", "Rosa Vidal",
		"Empar Granell", "Lluís Camps", "Teresa Monzó", "Enric Peris", "Amparo Costa",
		"Jordi Valls", "Isabel Montagut", "Xavier Benlloch", "Anna Climent", "Rafael Ortells",
		"Dolors Segarra", "Miquel Tormo", "Pilar Andrés", "Josep Cuquerella", "Marta Gil",
		"Andreu Llopis", "Alba Tarazona", "Vicenta March", "Salvador Faus", "Laura Espí",
		"Tomàs Ribera", "Clara Sanchis", "Artur Mestre", "Elena Pastor", "Bernat Oltra",
		"Sílvia Canet", "Raimon Palau", "Irene Company", "Gaspar Moltó", "Lídia Ferrandis",
		"Honorat Sifre", "Neus Guillem", "Abelard Frasquet", "Júlia Doménech", "Ovidi Signes",
		"Mercé Bataller", "Eusebi Reig", "Blanca Mompó", "Gonçal Alberola", "Roser Estruch",
	}

	fmt.Printf("=== Seeding %d Learners ===\n", len(names))

	hashed, err := bcrypt.GenerateFromPassword([]byte("neolingus"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	created := 0
	for i, name := range names {
		email := fmt.Sprintf("%s%d@learners.neolingus.example",
			strings.ToLower(strings.Split(name, " ")[0]), i+1)

		learner := &model.Learner{
			Name:         name,
			Email:        email,
			PasswordHash: string(hashed),
		}
		if err := learnerRepo.Create(ctx, learner); err != nil {
			log.Warn().Err(err).Str("email", email).Msg("Skipping learner")
			continue
		}
		created++
	}

	fmt.Printf("Done. Created %d learners (password: neolingus)\n", created)
}
