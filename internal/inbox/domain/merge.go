package domain

// MergeResult is the outcome of reconciling a local and a remote inbox.
type MergeResult struct {
	// Merged is the reconciled collection, newest first.
	Merged []InboxItem
	// NewCount counts remote-only items plus shared items that gained replies.
	NewCount int
	// NewItems lists the counted items in the order the remote side presented them.
	NewItems []InboxItem
}

// Merge reconciles local with remote. Neither input is modified.
//
// Remote-only items are added unread. Shared items keep local immutable fields,
// take the most final status, union their replies by id, and turn unread when a
// reply arrived that local did not have; otherwise they stay read only if both
// sides say so. Local-only items pass through unchanged.
func Merge(local, remote []InboxItem) MergeResult {
	byID := make(map[string]InboxItem, len(local)+len(remote))
	order := make([]string, 0, len(local)+len(remote))
	for _, item := range local {
		if _, ok := byID[item.ID]; !ok {
			order = append(order, item.ID)
		}
		byID[item.ID] = item.Clone()
	}

	result := MergeResult{NewItems: []InboxItem{}}
	for _, remoteItem := range remote {
		localItem, ok := byID[remoteItem.ID]
		if !ok {
			added := remoteItem.Clone()
			added.Read = false
			SortRepliesOldestFirst(added.Replies)
			byID[added.ID] = added
			order = append(order, added.ID)
			result.NewCount++
			result.NewItems = append(result.NewItems, added)
			continue
		}

		merged, hasNewReplies := mergeItem(localItem, remoteItem)
		byID[merged.ID] = merged
		if hasNewReplies {
			result.NewCount++
			result.NewItems = append(result.NewItems, merged)
		}
	}

	result.Merged = make([]InboxItem, 0, len(order))
	for _, id := range order {
		result.Merged = append(result.Merged, byID[id])
	}
	SortNewestFirst(result.Merged)
	return result
}

func mergeItem(local, remote InboxItem) (InboxItem, bool) {
	merged := local.Clone()
	merged.Status = ResolveStatus(local.Status, remote.Status)

	replies := make([]Reply, 0, len(local.Replies)+len(remote.Replies))
	seen := make(map[string]struct{}, cap(replies))
	for _, r := range local.Replies {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		replies = append(replies, r)
	}
	hasNewReplies := false
	for _, r := range remote.Replies {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		replies = append(replies, r)
		hasNewReplies = true
	}
	SortRepliesOldestFirst(replies)
	merged.Replies = replies

	if hasNewReplies {
		merged.Read = false
	} else {
		merged.Read = local.Read && remote.Read
	}
	return merged, hasNewReplies
}
