// Package catalog loads the content units daily puzzles are drawn from.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/daily-meme-quiz/internal/domain"
	"gopkg.in/yaml.v3"
)

// builtinFolders are the meme asset packs shipped with the game.
var builtinFolders = []string{
	"Absolute_Cinema",
	"All_My_Homies_Hate",
	"Boardroom_Meeting_Suggestion",
	"Change_My_Mind",
	"Distracted_Boyfriend",
	"Friendship_ended",
	"Hide_the_Pain_Harold",
	"I_Bet_Hes_Thinking_About_Other_Women",
	"Is_This_A_Pigeon",
	"Pawn_Stars_Best_I_Can_Do",
	"Sad_Pablo_Escobar",
	"Surprised_Pikachu",
	"The_Rock_Driving",
	"The_Scroll_Of_Truth",
	"Two_Buttons",
	"Two_Paths",
	"Waiting_Skeleton",
	"Woman_Yelling_At_Cat",
	"cmon_do_something",
	"spiderman_pointing_at_spiderman",
}

// Entry is one asset pack as described in a catalog file
type Entry struct {
	Folder   string `yaml:"folder"`
	Name     string `yaml:"name"`
	AssetKey string `yaml:"asset_key"`
	Clue     string `yaml:"clue"`
	Answer   string `yaml:"answer"`
}

// File is the on-disk catalog format
type File struct {
	Entries []Entry `yaml:"entries"`
}

// Builtin returns the shipped catalog with image paths under baseURL
func Builtin(baseURL string) []domain.CatalogUnit {
	entries := make([]Entry, len(builtinFolders))
	for i, folder := range builtinFolders {
		entries[i] = Entry{Folder: folder}
	}
	return toUnits(entries, baseURL)
}

// Load reads a YAML catalog file. Relative image names resolve against
// baseURL/<folder>.
func Load(path, baseURL string) ([]domain.CatalogUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	return toUnits(f.Entries, baseURL), nil
}

// Usable keeps the units that carry an identity and both images
func Usable(units []domain.CatalogUnit) []domain.CatalogUnit {
	out := make([]domain.CatalogUnit, 0, len(units))
	for _, u := range units {
		if u.Usable() {
			out = append(out, u)
		}
	}
	return out
}

func toUnits(entries []Entry, baseURL string) []domain.CatalogUnit {
	base := strings.TrimRight(baseURL, "/")
	units := make([]domain.CatalogUnit, 0, len(entries))
	for _, e := range entries {
		units = append(units, toUnit(e, base))
	}
	return units
}

func toUnit(e Entry, base string) domain.CatalogUnit {
	folder := strings.TrimSpace(e.Folder)

	uniqueID := strings.TrimSpace(e.AssetKey)
	if uniqueID == "" && folder != "" {
		uniqueID = "game_assets/" + folder
	}

	title := strings.TrimSpace(e.Name)
	if title == "" {
		title = strings.ReplaceAll(folder, "_", " ")
	}
	if title == "" {
		title = "Unknown Meme"
	}

	clue := e.Clue
	if clue == "" {
		clue = "clue_2.png"
	}
	answer := e.Answer
	if answer == "" {
		answer = "ANSWER.png"
	}

	return domain.CatalogUnit{
		UniqueID:    uniqueID,
		ID:          folder,
		Title:       title,
		ClueImage:   resolveImage(base, folder, clue),
		AnswerImage: resolveImage(base, folder, answer),
	}
}

func resolveImage(base, folder, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || folder == "" {
		return ""
	}
	if strings.Contains(name, "://") || strings.HasPrefix(name, "/") {
		return name
	}
	return fmt.Sprintf("%s/%s/%s", base, folder, name)
}
