package models

// MessageType is the top-level classification of an inbound message.
type MessageType string

const (
	MessageTypeGroup       MessageType = "GROUP"
	MessageTypeStray       MessageType = "STRAY"
	MessageTypeInfoRequest MessageType = "INFO_REQUEST"
	MessageTypeIgnore      MessageType = "IGNORE"
)

// MessageTypes lists every valid message type.
var MessageTypes = []MessageType{
	MessageTypeGroup,
	MessageTypeStray,
	MessageTypeInfoRequest,
	MessageTypeIgnore,
}

func (m MessageType) Valid() bool {
	switch m {
	case MessageTypeGroup, MessageTypeStray, MessageTypeInfoRequest, MessageTypeIgnore:
		return true
	}
	return false
}

// GroupKey identifies the listing-container template a GROUP message declares.
type GroupKey string

const (
	GroupSaleListing                   GroupKey = "SALE_LISTING"
	GroupLeaseListing                  GroupKey = "LEASE_LISTING"
	GroupSaleLeaseListing              GroupKey = "SALE_LEASE_LISTING"
	GroupSoldSaleLeaseListing          GroupKey = "SOLD_SALE_LEASE_LISTING"
	GroupRelistListing                 GroupKey = "RELIST_LISTING"
	GroupRelistListingDealSaleOrLease  GroupKey = "RELIST_LISTING_DEAL_SALE_OR_LEASE"
	GroupBuyOrLeased                   GroupKey = "BUY_OR_LEASED"
	GroupMarketingAgendaTemplate       GroupKey = "MARKETING_AGENDA_TEMPLATE"
)

// GroupKeys lists every valid group key.
var GroupKeys = []GroupKey{
	GroupSaleListing,
	GroupLeaseListing,
	GroupSaleLeaseListing,
	GroupSoldSaleLeaseListing,
	GroupRelistListing,
	GroupRelistListingDealSaleOrLease,
	GroupBuyOrLeased,
	GroupMarketingAgendaTemplate,
}

func (g GroupKey) Valid() bool {
	for _, k := range GroupKeys {
		if g == k {
			return true
		}
	}
	return false
}

// TaskKey identifies the task template a STRAY message maps to.
type TaskKey string

const (
	TaskSaleActiveTasks             TaskKey = "SALE_ACTIVE_TASKS"
	TaskSaleSoldTasks               TaskKey = "SALE_SOLD_TASKS"
	TaskSaleClosingTasks            TaskKey = "SALE_CLOSING_TASKS"
	TaskLeaseActiveTasks            TaskKey = "LEASE_ACTIVE_TASKS"
	TaskLeaseLeasedTasks            TaskKey = "LEASE_LEASED_TASKS"
	TaskLeaseClosingTasks           TaskKey = "LEASE_CLOSING_TASKS"
	TaskLeaseActiveTasksArlyn       TaskKey = "LEASE_ACTIVE_TASKS_ARLYN"
	TaskRelistListingDealSale       TaskKey = "RELIST_LISTING_DEAL_SALE"
	TaskRelistListingDealLease      TaskKey = "RELIST_LISTING_DEAL_LEASE"
	TaskBuyerDeal                   TaskKey = "BUYER_DEAL"
	TaskBuyerDealClosingTasks       TaskKey = "BUYER_DEAL_CLOSING_TASKS"
	TaskLeaseTenantDeal             TaskKey = "LEASE_TENANT_DEAL"
	TaskLeaseTenantDealClosingTasks TaskKey = "LEASE_TENANT_DEAL_CLOSING_TASKS"
	TaskPreconDeal                  TaskKey = "PRECON_DEAL"
	TaskMutualReleaseSteps          TaskKey = "MUTUAL_RELEASE_STEPS"
	TaskOpsMiscTask                 TaskKey = "OPS_MISC_TASK"
)

// TaskKeys lists every valid task key.
var TaskKeys = []TaskKey{
	TaskSaleActiveTasks,
	TaskSaleSoldTasks,
	TaskSaleClosingTasks,
	TaskLeaseActiveTasks,
	TaskLeaseLeasedTasks,
	TaskLeaseClosingTasks,
	TaskLeaseActiveTasksArlyn,
	TaskRelistListingDealSale,
	TaskRelistListingDealLease,
	TaskBuyerDeal,
	TaskBuyerDealClosingTasks,
	TaskLeaseTenantDeal,
	TaskLeaseTenantDealClosingTasks,
	TaskPreconDeal,
	TaskMutualReleaseSteps,
	TaskOpsMiscTask,
}

func (t TaskKey) Valid() bool {
	for _, k := range TaskKeys {
		if t == k {
			return true
		}
	}
	return false
}

// ListingType says whether a listing is for sale or for lease.
type ListingType string

const (
	ListingSale  ListingType = "SALE"
	ListingLease ListingType = "LEASE"
)

func (l ListingType) Valid() bool {
	return l == ListingSale || l == ListingLease
}

// Listing carries the property details extracted from a message.
type Listing struct {
	Type    *ListingType `json:"type"`
	Address *string      `json:"address"`
}

// Classification is the validated, typed record produced from raw model
// output. Exactly one of TaskKey/GroupKey is set for STRAY/GROUP; both are
// nil for INFO_REQUEST/IGNORE.
type Classification struct {
	SchemaVersion int         `json:"schema_version"`
	MessageType   MessageType `json:"message_type"`
	TaskKey       *TaskKey    `json:"task_key"`
	GroupKey      *GroupKey   `json:"group_key"`
	Listing       Listing     `json:"listing"`
	AssigneeHint  *string     `json:"assignee_hint"`
	DueDate       *string     `json:"due_date" validate:"omitempty,isodate"`
	TaskTitle     *string     `json:"task_title" validate:"omitempty,max=80"`
	Confidence    float64     `json:"confidence" validate:"gte=0,lte=1"`
	Explanations  []string    `json:"explanations"`
}
