package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationDriverAssigned NotificationType = "driver_assigned"
	NotificationOrderShipped   NotificationType = "order_shipped"
	NotificationOrderDelivered NotificationType = "order_delivered"
	NotificationOrderCancelled NotificationType = "order_cancelled"
	NotificationSystem         NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationDriverAssigned,
	NotificationOrderShipped,
	NotificationOrderDelivered,
	NotificationOrderCancelled,
	NotificationSystem,
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}
