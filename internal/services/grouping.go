package services

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"fatturamerge/internal/config"
	"fatturamerge/internal/models"
)

// reGroupKey matches the shared identifier encoded in upload filenames,
// e.g. "25-02050" in "25-02050_Allegato1.pdf".
var reGroupKey = regexp.MustCompile(`\d{2}-\d{4,}`)

// reAttachmentIndex reads an explicit attachment index like "Allegato 2".
var reAttachmentIndex = regexp.MustCompile(`(?i)allegato[\s_-]*(\d+)`)

// ExtractGroupKey returns the first group identifier found in filename.
// Documents without one never join any group.
func ExtractGroupKey(filename string) (string, bool) {
	key := reGroupKey.FindString(filename)
	return key, key != ""
}

// ClassifyRole decides whether a filename denotes an attachment or a main
// document. The "allegato" marker is matched case-insensitively.
func ClassifyRole(filename string) models.Role {
	if strings.Contains(strings.ToLower(filename), "allegato") {
		return models.RoleAttachment
	}
	return models.RoleMain
}

// attachmentIndex returns the explicit "Allegato N" index, or -1.
func attachmentIndex(filename string) int {
	m := reAttachmentIndex.FindStringSubmatch(filename)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// orderMembers sorts a group into merge order: mains before attachments,
// mains by case-insensitive filename, attachments by explicit index when
// present, else case-insensitive filename. The sort is total, so any input
// permutation yields the same order.
func orderMembers(members []models.GroupMember) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Role != b.Role {
			return a.Role == models.RoleMain
		}
		if a.Role == models.RoleAttachment {
			switch {
			case a.AttachmentIndex >= 0 && b.AttachmentIndex >= 0 && a.AttachmentIndex != b.AttachmentIndex:
				return a.AttachmentIndex < b.AttachmentIndex
			case a.AttachmentIndex >= 0 && b.AttachmentIndex < 0:
				return true
			case a.AttachmentIndex < 0 && b.AttachmentIndex >= 0:
				return false
			}
		}
		return strings.ToLower(a.Document.OriginalName) < strings.ToLower(b.Document.OriginalName)
	})
}

// BuildGroups partitions the uploaded documents by group key and keeps only
// complete groups per the configured mode. Key-less documents and incomplete
// groups are dropped silently. Group order follows first appearance in the
// upload set; member order is the merge order.
func BuildGroups(docs []models.UploadedDocument, mode config.GroupingMode) []models.DocumentGroup {
	byKey := make(map[string][]models.GroupMember)
	var keys []string

	for _, doc := range docs {
		key, ok := ExtractGroupKey(doc.OriginalName)
		if !ok {
			slog.Debug("Document has no group identifier. Skipping.", "filename", doc.OriginalName)
			continue
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], models.GroupMember{
			Document:        doc,
			Role:            ClassifyRole(doc.OriginalName),
			AttachmentIndex: attachmentIndex(doc.OriginalName),
		})
	}

	var groups []models.DocumentGroup
	for _, key := range keys {
		members := byKey[key]
		orderMembers(members)
		if !isComplete(members, mode) {
			slog.Debug("Group is incomplete. Skipping.", "groupKey", key, "memberCount", len(members))
			continue
		}
		if mode == config.GroupingLenient && members[0].Role != models.RoleMain {
			// All members carry the attachment marker; the first in order
			// still leads the merge.
			members[0].Role = models.RoleMain
		}
		groups = append(groups, models.DocumentGroup{Key: key, Members: members})
	}
	return groups
}

func isComplete(members []models.GroupMember, mode config.GroupingMode) bool {
	if mode == config.GroupingLenient {
		return len(members) >= 2
	}
	mains := 0
	for _, m := range members {
		if m.Role == models.RoleMain {
			mains++
		}
	}
	return mains == 1 && len(members) > 1
}
