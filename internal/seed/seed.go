// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"nexus/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumNetworks int
	ShouldClean bool
}

var networkThemes = []string{
	"Night Owls", "Morning Runners", "Book Circle", "Chess Society", "Indie Devs",
	"Trail Hikers", "Film Club", "Language Exchange", "Makers Guild", "Garden Collective",
	"Board Gamers", "Photo Walks", "Study Group", "Cooking Lab", "Vinyl Heads",
}

var goalTitles = []string{
	"Meet weekly", "Ship a side project", "Read one book a month", "Run a 10k",
	"Host a meetup", "Mentor a newcomer", "Document the basics", "Plan a retreat",
}

// Seeder creates realistic demo data over a Gorm connection.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// ClearAll wipes every seeded table. Child tables first so foreign keys
// never block the wipe on databases that enforce them.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []string{
		"network_member_goals", "network_goals", "pending_network_joins",
		"network_invitations", "network_members", "networks", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// SeedUsers creates n fake users.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, models.User{
			Name:   gofakeit.Name(),
			Email:  fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Avatar: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		})
	}
	if err := s.db.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

// SeedNetworks creates n networks cycling through the approval modes so every
// join path has data behind it. Passcode networks get the passcode "letmein".
func (s *Seeder) SeedNetworks(users []models.User, n int) ([]models.Network, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to own networks")
	}

	modes := []models.ApprovalMode{
		models.ApprovalModeAuto,
		models.ApprovalModePasscode,
		models.ApprovalModeManual,
	}

	networks := make([]models.Network, 0, n)
	for i := 0; i < n; i++ {
		name := networkThemes[i%len(networkThemes)]
		if i >= len(networkThemes) {
			name = fmt.Sprintf("%s %d", name, i/len(networkThemes)+1)
		}
		mode := modes[i%len(modes)]

		network := models.Network{
			Name:             name,
			TagName:          seedTag(name),
			Description:      gofakeit.Sentence(12),
			IsPrivate:        mode != models.ApprovalModeAuto && gofakeit.Bool(),
			ApprovalMode:     mode,
			SuspensionStatus: models.SuspensionStatusActive,
		}
		if mode == models.ApprovalModePasscode {
			code := "letmein"
			network.Passcode = &code
		}
		if err := s.db.Create(&network).Error; err != nil {
			return nil, fmt.Errorf("create network %q: %w", name, err)
		}

		// First user in the rotation owns the network.
		owner := users[i%len(users)]
		if err := s.db.Create(&models.NetworkMember{
			NetworkID: network.ID,
			UserID:    owner.ID,
			Role:      models.NetworkRoleAdmin,
		}).Error; err != nil {
			return nil, fmt.Errorf("create admin membership: %w", err)
		}

		networks = append(networks, network)
	}
	return networks, nil
}

// SeedMemberships spreads users across networks with a realistic role mix.
func (s *Seeder) SeedMemberships(users []models.User, networks []models.Network) (int, error) {
	roles := []models.NetworkRole{
		models.NetworkRoleMember, models.NetworkRoleMember, models.NetworkRoleMember,
		models.NetworkRoleModerator, models.NetworkRoleVIP, models.NetworkRoleLeader,
	}

	created := 0
	for ni, network := range networks {
		for ui, user := range users {
			// The owner already holds the admin seat.
			if ui%len(networks) == ni%len(networks) {
				continue
			}
			// Roughly half the remaining users join each network.
			if (ui+ni)%2 != 0 {
				continue
			}
			member := models.NetworkMember{
				NetworkID: network.ID,
				UserID:    user.ID,
				Role:      roles[(ui+ni)%len(roles)],
			}
			if err := s.db.Create(&member).Error; err != nil {
				return created, fmt.Errorf("create membership: %w", err)
			}
			created++
		}
	}
	return created, nil
}

// SeedGoals gives each network a few goals and opts some members into them.
func (s *Seeder) SeedGoals(networks []models.Network) (int, error) {
	created := 0
	for _, network := range networks {
		var admin models.NetworkMember
		if err := s.db.Where("network_id = ? AND role = ?", network.ID, models.NetworkRoleAdmin).
			First(&admin).Error; err != nil {
			continue
		}

		for gi := 0; gi < 3; gi++ {
			goal := models.NetworkGoal{
				NetworkID:       network.ID,
				Title:           goalTitles[(int(network.ID)+gi)%len(goalTitles)],
				Description:     gofakeit.Sentence(8),
				CreatedByUserID: admin.UserID,
			}
			if err := s.db.Create(&goal).Error; err != nil {
				return created, fmt.Errorf("create goal: %w", err)
			}
			created++

			var members []models.NetworkMember
			if err := s.db.Where("network_id = ?", network.ID).Limit(4).Find(&members).Error; err != nil {
				return created, err
			}
			for mi, member := range members {
				if (mi+gi)%2 != 0 {
					continue
				}
				selection := models.NetworkMemberGoal{
					NetworkID: network.ID,
					UserID:    member.UserID,
					GoalID:    goal.ID,
				}
				if err := s.db.Create(&selection).Error; err != nil {
					return created, fmt.Errorf("create goal selection: %w", err)
				}
			}
		}
	}
	return created, nil
}

// SeedInvitationsAndJoins creates pending invitations into private networks
// and queued join requests against manual-mode networks.
func (s *Seeder) SeedInvitationsAndJoins(users []models.User, networks []models.Network) error {
	for ni, network := range networks {
		var admin models.NetworkMember
		if err := s.db.Where("network_id = ? AND role = ?", network.ID, models.NetworkRoleAdmin).
			First(&admin).Error; err != nil {
			continue
		}

		outsider := users[(ni+3)%len(users)]
		var existing models.NetworkMember
		err := s.db.Where("network_id = ? AND user_id = ?", network.ID, outsider.ID).
			First(&existing).Error
		if err == nil {
			continue
		}

		if network.ApprovalMode == models.ApprovalModeManual {
			join := models.PendingNetworkJoin{
				NetworkID: network.ID,
				UserID:    outsider.ID,
				Status:    models.JoinRequestStatusPending,
			}
			if err := s.db.Create(&join).Error; err != nil {
				return fmt.Errorf("create pending join: %w", err)
			}
			continue
		}

		invitation := models.NetworkInvitation{
			NetworkID:       network.ID,
			InvitedUserID:   outsider.ID,
			InvitedByUserID: admin.UserID,
			Role:            models.NetworkRoleMember,
			InviteToken:     uuid.NewString(),
			ExpiresAt:       time.Now().Add(models.DefaultInvitationTTL),
		}
		if err := s.db.Create(&invitation).Error; err != nil {
			return fmt.Errorf("create invitation: %w", err)
		}
	}
	return nil
}

// Seed populates the database with demo users, networks, memberships,
// goals, invitations, and pending join requests.
func (s *Seeder) Seed(opts Options) error {
	log.Printf("Seeding %d users and %d networks...", opts.NumUsers, opts.NumNetworks)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(opts.NumUsers)
	if err != nil {
		return err
	}
	log.Printf("created %d users", len(users))

	networks, err := s.SeedNetworks(users, opts.NumNetworks)
	if err != nil {
		return err
	}
	log.Printf("created %d networks", len(networks))

	memberships, err := s.SeedMemberships(users, networks)
	if err != nil {
		return err
	}
	log.Printf("created %d memberships", memberships)

	goals, err := s.SeedGoals(networks)
	if err != nil {
		return err
	}
	log.Printf("created %d goals", goals)

	if err := s.SeedInvitationsAndJoins(users, networks); err != nil {
		return err
	}

	log.Println("Seeding complete")
	return nil
}

// seedTag builds a unique tag the same shape the service generates:
// "@" + lowercase slug + 3 random bytes in hex.
func seedTag(name string) string {
	var slug strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			slug.WriteRune(r)
		}
		if slug.Len() >= 20 {
			break
		}
	}
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return "@" + slug.String() + hex.EncodeToString(suffix)
}
