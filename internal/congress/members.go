// internal/congress/members.go
package congress

import (
	"context"
	"fmt"

	"congress-data-sync/internal/model"
)

// MembersPage is one page of the member collection.
type MembersPage struct {
	Items      []model.Member
	Pagination Pagination
}

// ListMembers fetches one page of members updated since opts.FromDateTime.
func (c *Client) ListMembers(ctx context.Context, opts ListOptions) (*MembersPage, error) {
	var resp struct {
		Members    []wireMember   `json:"members"`
		Pagination wirePagination `json:"pagination"`
	}
	if err := c.get(ctx, "/member", listQuery(opts), &resp); err != nil {
		return nil, err
	}

	page := &MembersPage{Pagination: toPagination(resp.Pagination)}
	for _, m := range resp.Members {
		page.Items = append(page.Items, toInternalMember(m))
	}
	return page, nil
}

// GetMember fetches member detail plus served terms for a bioguide id.
func (c *Client) GetMember(ctx context.Context, bioguideID string) (*model.Member, []model.MemberTerm, error) {
	var resp struct {
		Member wireMemberDetail `json:"member"`
	}
	if err := c.get(ctx, "/member/"+bioguideID, nil, &resp); err != nil {
		return nil, nil, err
	}

	member := toInternalMember(resp.Member.wireMember)
	member.Current = resp.Member.CurrentMember

	terms := make([]model.MemberTerm, 0, len(resp.Member.Terms))
	for _, t := range resp.Member.Terms {
		terms = append(terms, model.MemberTerm{
			Congress:  t.Congress,
			Chamber:   t.Chamber,
			StartYear: t.StartYear,
			EndYear:   t.EndYear,
			State:     t.StateCode,
			District:  t.District,
		})
	}
	return &member, terms, nil
}

type wireMember struct {
	BioguideID string `json:"bioguideId"`
	Name       string `json:"name"`
	State      string `json:"state"`
	PartyName  string `json:"partyName"`
	Chamber    string `json:"chamber"`
	Depiction  struct {
		ImageURL string `json:"imageUrl"`
	} `json:"depiction"`
	UpdateDate string `json:"updateDate"`
}

type wireMemberDetail struct {
	wireMember
	CurrentMember bool `json:"currentMember"`
	Terms         []struct {
		Congress  int    `json:"congress"`
		Chamber   string `json:"chamber"`
		StartYear int    `json:"startYear"`
		EndYear   int    `json:"endYear"`
		StateCode string `json:"stateCode"`
		District  int    `json:"district"`
	} `json:"terms"`
}

func toInternalMember(m wireMember) model.Member {
	return model.Member{
		BioguideID: m.BioguideID,
		FullName:   m.Name,
		State:      m.State,
		Party:      m.PartyName,
		Chamber:    m.Chamber,
		ImageURL:   m.Depiction.ImageURL,
		UpdateDate: parseDate(m.UpdateDate),
	}
}

// HearingsPage is one page of the hearing collection.
type HearingsPage struct {
	Items      []model.Hearing
	Pagination Pagination
}

// ListHearings fetches one page of hearings for a congress.
func (c *Client) ListHearings(ctx context.Context, opts ListOptions) (*HearingsPage, error) {
	var resp struct {
		Hearings   []wireHearing  `json:"hearings"`
		Pagination wirePagination `json:"pagination"`
	}
	if err := c.get(ctx, fmt.Sprintf("/hearing/%d", opts.Congress), listQuery(opts), &resp); err != nil {
		return nil, err
	}

	page := &HearingsPage{Pagination: toPagination(resp.Pagination)}
	for _, h := range resp.Hearings {
		page.Items = append(page.Items, toInternalHearing(h))
	}
	return page, nil
}

// GetHearing fetches hearing detail.
func (c *Client) GetHearing(ctx context.Context, congress int, chamber, eventID string) (*model.Hearing, error) {
	var resp struct {
		Hearing wireHearingDetail `json:"hearing"`
	}
	path := fmt.Sprintf("/hearing/%d/%s/%s", congress, chamber, eventID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}

	hearing := toInternalHearing(resp.Hearing.wireHearing)
	hearing.Title = resp.Hearing.Title
	hearing.Location = resp.Hearing.Location.Name
	if len(resp.Hearing.Dates) > 0 {
		hearing.HearingDate = parseDate(resp.Hearing.Dates[0].Date)
	}
	if len(resp.Hearing.Committees) > 0 {
		hearing.Committee = resp.Hearing.Committees[0].Name
	}
	return &hearing, nil
}

type wireHearing struct {
	JacketNumber int    `json:"jacketNumber"`
	Congress     int    `json:"congress"`
	Chamber      string `json:"chamber"`
	UpdateDate   string `json:"updateDate"`
}

type wireHearingDetail struct {
	wireHearing
	Title string `json:"title"`
	Dates []struct {
		Date string `json:"date"`
	} `json:"dates"`
	Committees []struct {
		Name string `json:"name"`
	} `json:"committees"`
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
}

func toInternalHearing(h wireHearing) model.Hearing {
	return model.Hearing{
		EventID:    fmt.Sprintf("%d", h.JacketNumber),
		Congress:   h.Congress,
		Chamber:    h.Chamber,
		UpdateDate: parseDate(h.UpdateDate),
	}
}
