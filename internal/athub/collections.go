package athub

// Collection is the NSID of a record kind within a repository.
type Collection string

const (
	CollectionQuest        Collection = "app.athub.repo"
	CollectionProposal     Collection = "app.athub.issue"
	CollectionContribution Collection = "app.athub.commit"
	CollectionBadge        Collection = "app.athub.award"
)

// BadgeType is the closed set of peer-awarded badge kinds.
type BadgeType string

const (
	BadgeContinuous   BadgeType = "continuous"
	BadgeInsightful   BadgeType = "insightful"
	BadgeCollaborator BadgeType = "collaborator"
	BadgeBrave        BadgeType = "brave"
)

// ProposalState has exactly two reachable values.
const (
	ProposalOpen   = "open"
	ProposalClosed = "closed"
)

// IsCollection reports whether value names one of the app's collections.
func IsCollection(value string) bool {
	switch Collection(value) {
	case CollectionQuest, CollectionProposal, CollectionContribution, CollectionBadge:
		return true
	}
	return false
}

// IsBadgeType reports whether value is an accepted badge type.
func IsBadgeType(value string) bool {
	switch BadgeType(value) {
	case BadgeContinuous, BadgeInsightful, BadgeCollaborator, BadgeBrave:
		return true
	}
	return false
}

// IsProposalState reports whether value is an accepted proposal state.
func IsProposalState(value string) bool {
	return value == ProposalOpen || value == ProposalClosed
}
