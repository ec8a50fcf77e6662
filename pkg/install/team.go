package install

import (
	"context"

	"github.com/pixelomer/AltDeploy/pkg/portal"
)

const revokeWarningMessage = "Continuing will revoke your iOS development certificate. " +
	"This will not affect apps submitted to the App Store, but apps installed with Xcode " +
	"may stop working until you reinstall them. Continue?"

// resolveTeam selects exactly one development team for the installation. A
// non-free team implies revoking that team's existing certificate later, so
// the user must confirm before any remote state is mutated.
func (i *Installer) resolveTeam(ctx context.Context, account *portal.Account, session *portal.Session) (*portal.Team, error) {
	teams, err := i.Portal.FetchTeams(ctx, account, session)
	if err != nil {
		return nil, err
	}

	team := chooseTeam(teams)
	if team == nil {
		return nil, ErrNoTeam
	}

	if team.Type != portal.TeamTypeFree {
		if !i.Prompts.RequestConfirmation(revokeWarningMessage) {
			return nil, ErrCancelled
		}
	}

	return team, nil
}

// chooseTeam applies the fixed preference order: a free team if present, else
// the first individual team, else the first team returned. Nil for an empty
// set.
func chooseTeam(teams []portal.Team) *portal.Team {
	for idx := range teams {
		if teams[idx].Type == portal.TeamTypeFree {
			return &teams[idx]
		}
	}
	for idx := range teams {
		if teams[idx].Type == portal.TeamTypeIndividual {
			return &teams[idx]
		}
	}
	if len(teams) > 0 {
		return &teams[0]
	}
	return nil
}
