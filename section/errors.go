package section

import "errors"

var (
	// ErrUnknownSection is returned for a SectionID not in the collection.
	ErrUnknownSection = errors.New("section: unknown section")

	// ErrUnknownGroup is returned for a GroupID not in the collection.
	ErrUnknownGroup = errors.New("section: unknown group")

	// ErrAlreadyGrouped is returned when a section that already belongs to a
	// group is assigned again. The first group to claim a section keeps it.
	ErrAlreadyGrouped = errors.New("section: section already belongs to a group")

	// ErrPageTaken is returned when a group already has a member on the
	// candidate's page, or when a page is added to a collection twice.
	ErrPageTaken = errors.New("section: page already taken")

	// ErrNotMatchable is returned when an Other section is used as a group
	// master or member.
	ErrNotMatchable = errors.New("section: only text and object sections can be grouped")
)
