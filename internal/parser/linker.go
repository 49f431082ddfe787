package parser

import (
	"sort"

	"github.com/knowater521/doctor/internal/model"
)

// Link attaches every vote whose valid-after timestamp equals a consensus's
// valid-after to the millisecond. A consensus may accumulate any number of
// votes and a vote may match any number of consensuses; votes never point
// back at a consensus.
func Link(consensuses map[string]*model.StatusDocument, votes []*model.StatusDocument) {
	for _, consensus := range consensuses {
		for _, vote := range votes {
			if consensus.ValidAfter.UnixMilli() == vote.ValidAfter.UnixMilli() {
				consensus.LinkVote(vote)
			}
		}
	}
}

// ParseAll parses the downloaded votes and consensuses of one run and links
// them. The result is keyed by the nickname of the authority each consensus
// was retrieved from. Documents that fail to parse are dropped with a
// warning and the batch continues.
func (p *Parser) ParseAll(consensuses, votes []model.Download) map[string]*model.StatusDocument {
	parsedVotes := make([]*model.StatusDocument, 0, len(votes))
	for _, dl := range votes {
		vote, err := p.Parse(dl.Response, dl.FetchTime, false)
		if err != nil {
			p.logger.Warn("dropping vote", "reason", err)
			continue
		}
		parsedVotes = append(parsedVotes, vote)
	}
	// Stable vote order keeps LinkedVotes deterministic across runs.
	sort.Slice(parsedVotes, func(i, j int) bool {
		return parsedVotes[i].Nickname < parsedVotes[j].Nickname
	})

	parsed := make(map[string]*model.StatusDocument, len(consensuses))
	for _, dl := range consensuses {
		consensus, err := p.Parse(dl.Response, dl.FetchTime, true)
		if err != nil {
			p.logger.Warn("dropping consensus", "authority", dl.Authority, "reason", err)
			continue
		}
		parsed[dl.Authority] = consensus
	}

	Link(parsed, parsedVotes)
	return parsed
}
