package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var snowflakePattern = regexp.MustCompile(`(\d{17,20})`)

// UserFetcher fetches a user by ID over REST.
type UserFetcher func(userID string) (*discordgo.User, error)

// ResolveUsers finds users matching search. An ID or mention is fetched
// directly. Otherwise cached members whose tag equals search are returned.
// Without exact, username and tag substring matches are added.
func ResolveUsers(state *discordgo.State, fetch UserFetcher, search string, exact bool) []*discordgo.User {
	search = strings.TrimSpace(search)
	if search == "" {
		return nil
	}

	if m := snowflakePattern.FindStringSubmatch(search); m != nil && fetch != nil {
		if u, err := fetch(m[1]); err == nil && u != nil {
			return []*discordgo.User{u}
		}
	}

	cached := cachedUsers(state)
	var tagMatches []*discordgo.User
	for _, u := range cached {
		if u.String() == search {
			tagMatches = append(tagMatches, u)
		}
	}
	if exact {
		return tagMatches
	}

	seen := make(map[string]struct{}, len(tagMatches))
	out := make([]*discordgo.User, 0, len(tagMatches))
	for _, u := range tagMatches {
		seen[u.ID] = struct{}{}
		out = append(out, u)
	}

	needle := strings.ToLower(search)
	for _, u := range cached {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		if u.Username == search ||
			strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.String()), needle) {
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// cachedUsers returns the distinct users of all cached guild members in a
// stable order.
func cachedUsers(state *discordgo.State) []*discordgo.User {
	if state == nil {
		return nil
	}
	state.RLock()
	defer state.RUnlock()

	seen := make(map[string]struct{})
	var out []*discordgo.User
	for _, g := range state.Guilds {
		for _, m := range g.Members {
			if m.User == nil {
				continue
			}
			if _, ok := seen[m.User.ID]; ok {
				continue
			}
			seen[m.User.ID] = struct{}{}
			out = append(out, m.User)
		}
	}
	return out
}
