package leave

type CreateLeaveRequest struct {
	UserID        string `json:"userId" binding:"required"`
	LeaveType     string `json:"leaveType" binding:"required,oneof=SickLeave CasualLeave EarnedLeave HalfDayLeave EmergencyLeave"`
	LeaveDuration string `json:"leaveDuration" binding:"omitempty,oneof=FullDay HalfDay"`
	FromDate      string `json:"fromDate" binding:"required"`
	ToDate        string `json:"toDate"`
	FromTime      string `json:"fromTime"`
	ToTime        string `json:"toTime"`
	Reason        string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status" binding:"required,oneof=Pending Approved Rejected"`
	RejectionReason string `json:"rejectionReason"`
}
