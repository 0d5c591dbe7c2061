package gcal

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

var ErrEventNotFound = errors.New("google calendar event not found")

// IsEventNotFound returns true when a Google Calendar event no longer exists.
func IsEventNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}

// MeetingInput represents the input for scheduling a meeting
type MeetingInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Attendees   []string // Email addresses of attendees
	WithMeet    bool     // Attach a Google Meet conference link
}

// Meeting represents a scheduled calendar meeting.
type Meeting struct {
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Attendees []string  `json:"attendees,omitempty"`
	MeetLink  string    `json:"meet_link,omitempty"`
	HTMLLink  string    `json:"html_link,omitempty"`
}

func parseGoogleEventTimes(item *calendar.Event, loc *time.Location) (time.Time, time.Time, error) {
	if item == nil || item.Start == nil || item.End == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event is missing start or end")
	}

	// All-day events use Date instead of DateTime.
	if item.Start.Date != "" {
		startDate, err := time.ParseInLocation("2006-01-02", item.Start.Date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to parse all-day start date: %w", err)
		}
		endDate, err := time.ParseInLocation("2006-01-02", item.End.Date, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to parse all-day end date: %w", err)
		}
		return startDate, endDate, nil
	}

	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("event datetime is missing")
	}

	startTime, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse start datetime: %w", err)
	}
	endTime, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse end datetime: %w", err)
	}

	return startTime, endTime, nil
}

// ScheduleMeeting creates a meeting on Google Calendar with attendee
// invitations and, when requested, a Google Meet conference link.
func (c *Client) ScheduleMeeting(calendarID string, input MeetingInput) (*Meeting, error) {
	if c.service == nil {
		return nil, fmt.Errorf("calendar service not initialized")
	}
	if input.Title == "" {
		return nil, fmt.Errorf("meeting title is required")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, fmt.Errorf("meeting end time must be after start time")
	}

	if calendarID == "" {
		calendarID = "primary"
	}

	// RFC3339 format includes timezone offset, so Google Calendar can infer the timezone
	event := &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.StartTime.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: input.EndTime.Format(time.RFC3339),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 10},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if len(input.Attendees) > 0 {
		attendees := make([]*calendar.EventAttendee, len(input.Attendees))
		for i, email := range input.Attendees {
			attendees[i] = &calendar.EventAttendee{Email: email}
		}
		event.Attendees = attendees
	}

	if input.WithMeet {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: fmt.Sprintf("meet-%d", time.Now().UnixNano()),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
	}

	// SendUpdates sends invitation emails to attendees
	call := c.service.Events.Insert(calendarID, event).SendUpdates("all")
	if input.WithMeet {
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to schedule meeting: %w", err)
	}

	return &Meeting{
		EventID:   created.Id,
		Title:     input.Title,
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Attendees: input.Attendees,
		MeetLink:  created.HangoutLink,
		HTMLLink:  created.HtmlLink,
	}, nil
}

// CancelMeeting deletes a meeting from Google Calendar, notifying attendees.
func (c *Client) CancelMeeting(calendarID, eventID string) error {
	if c.service == nil {
		return fmt.Errorf("calendar service not initialized")
	}
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if calendarID == "" {
		calendarID = "primary"
	}

	err := c.service.Events.Delete(calendarID, eventID).SendUpdates("all").Do()
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to cancel meeting: %w", err)
	}

	return nil
}

// ListUpcomingMeetings returns the next meetings on the calendar, earliest first.
func (c *Client) ListUpcomingMeetings(calendarID string, window time.Duration, limit int) ([]Meeting, error) {
	if c.service == nil {
		return nil, fmt.Errorf("calendar service not initialized")
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if limit <= 0 {
		limit = 10
	}

	now := time.Now()
	events, err := c.service.Events.List(calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(window).Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		MaxResults(int64(limit)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming meetings: %w", err)
	}

	result := make([]Meeting, 0, len(events.Items))
	for _, item := range events.Items {
		if item == nil || item.Status == "cancelled" {
			continue
		}

		startTime, endTime, parseErr := parseGoogleEventTimes(item, now.Location())
		if parseErr != nil {
			// Skip malformed events rather than failing the whole request.
			continue
		}

		var attendees []string
		for _, attendee := range item.Attendees {
			if attendee != nil && attendee.Email != "" {
				attendees = append(attendees, attendee.Email)
			}
		}

		result = append(result, Meeting{
			EventID:   item.Id,
			Title:     item.Summary,
			StartTime: startTime,
			EndTime:   endTime,
			Attendees: attendees,
			MeetLink:  item.HangoutLink,
			HTMLLink:  item.HtmlLink,
		})
	}

	return result, nil
}
