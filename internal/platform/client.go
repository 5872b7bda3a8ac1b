package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultBaseURL is the hosted learning platform.
const DefaultBaseURL = "https://www.yuketang.cn"

// ErrNoDetailID indicates a homework leaf whose detail id could not be
// resolved; the homework cannot be processed without it.
var ErrNoDetailID = errors.New("detail id not resolved")

// ErrNoProgress indicates the platform returned no usable progress record for
// the requested video. Never-watched videos have no entry in the progress map.
var ErrNoProgress = errors.New("no watch progress recorded")

// Client is the typed API surface of the learning platform. All methods are
// safe for concurrent use; the underlying session is shared read-only.
type Client struct {
	baseURL string
	session *Session
}

// NewClient creates a platform client on top of an authenticated session.
func NewClient(baseURL string, session *Session) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: baseURL, session: session}
}

// courseHeaders builds the course-scoped header/cookie extension every
// classroom-bound call must carry.
func courseHeaders(course Course) map[string]string {
	cid := itoa(course.ClassroomID)
	uid := itoa(course.UniversityID)
	return map[string]string{
		"Cookie": "xtbz=ykt; platform_type=1; uv_id=" + uid +
			"; university_id=" + uid + "; platform_id=3; classroom_id=" + cid +
			"; classroomID=" + cid,
		"classroom-id": cid,
		"Xtbz":         "ykt",
	}
}

func (c *Client) get(ctx context.Context, path string, extra map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, extra)
}

func (c *Client) post(ctx context.Context, path string, payload any, extra map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req, extra)
}

func (c *Client) do(req *http.Request, extra map[string]string) ([]byte, error) {
	c.session.apply(req, extra)
	resp, err := c.session.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// UserInfo fetches the authenticated user's identity.
func (c *Client) UserInfo(ctx context.Context) (UserInfo, error) {
	body, err := c.get(ctx, "/api/v3/user/basic-info", nil)
	if err != nil {
		return UserInfo{}, err
	}
	var env struct {
		Code int      `json:"code"`
		Data UserInfo `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return UserInfo{}, fmt.Errorf("decode user info: %w", err)
	}
	if env.Code != 0 {
		return UserInfo{}, fmt.Errorf("user info rejected (code %d)", env.Code)
	}
	return env.Data, nil
}

// Courses lists the user's enrolled courses.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	body, err := c.get(ctx, "/v2/api/web/courses/list?identity=2", nil)
	if err != nil {
		return nil, err
	}
	var env struct {
		ErrCode int `json:"errcode"`
		Data    struct {
			List []struct {
				ClassroomID int64 `json:"classroom_id"`
				Course      struct {
					ID           int64  `json:"id"`
					Name         string `json:"name"`
					UniversityID int64  `json:"university_id"`
				} `json:"course"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode course list: %w", err)
	}
	if env.ErrCode != 0 {
		return nil, fmt.Errorf("course list rejected (errcode %d)", env.ErrCode)
	}

	courses := make([]Course, 0, len(env.Data.List))
	for _, item := range env.Data.List {
		courses = append(courses, Course{
			Name:         item.Course.Name,
			ClassroomID:  item.ClassroomID,
			UniversityID: item.Course.UniversityID,
			CourseID:     item.Course.ID,
		})
	}
	return courses, nil
}

// ClassroomInfo resolves the classroom context for a course.
func (c *Client) ClassroomInfo(ctx context.Context, course Course) (ClassroomContext, error) {
	path := fmt.Sprintf("/v2/api/web/classrooms/%d?role=5", course.ClassroomID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return ClassroomContext{}, err
	}
	var env struct {
		ErrCode int              `json:"errcode"`
		Data    ClassroomContext `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ClassroomContext{}, fmt.Errorf("decode classroom info: %w", err)
	}
	if env.ErrCode != 0 {
		return ClassroomContext{}, fmt.Errorf("classroom info rejected (errcode %d)", env.ErrCode)
	}
	return env.Data, nil
}

// chapterSection is a node of the chapter tree. A section usually wraps a
// leaf_list, but the platform sometimes inlines a bare leaf at section level.
type chapterSection struct {
	Leaf
	LeafList []Leaf `json:"leaf_list"`
}

// CourseLeaves flattens the course chapter tree into its leaves, in course
// order. Videos, articles and homeworks are distinguished by Leaf.LeafType.
func (c *Client) CourseLeaves(ctx context.Context, course Course, cctx ClassroomContext) ([]Leaf, error) {
	path := fmt.Sprintf("/mooc-api/v1/lms/learn/course/chapter?cid=%d&sign=%s&term=latest&uv_id=%d&classroom_id=%d",
		course.ClassroomID, cctx.CourseSign, course.UniversityID, course.ClassroomID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return nil, err
	}
	var env struct {
		Data struct {
			CourseChapter []struct {
				SectionLeafList []chapterSection `json:"section_leaf_list"`
			} `json:"course_chapter"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode chapter tree: %w", err)
	}

	var leaves []Leaf
	for _, chapter := range env.Data.CourseChapter {
		for _, section := range chapter.SectionLeafList {
			if len(section.LeafList) == 0 {
				leaves = append(leaves, section.Leaf)
				continue
			}
			leaves = append(leaves, section.LeafList...)
		}
	}
	return leaves, nil
}

// LeafTypeID resolves the platform-internal detail id of a homework leaf.
func (c *Client) LeafTypeID(ctx context.Context, course Course, leafID int64) (int64, error) {
	path := fmt.Sprintf("/mooc-api/v1/lms/learn/leaf_info/%d/%d/", course.ClassroomID, leafID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return 0, err
	}
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			ContentInfo struct {
				LeafTypeID int64 `json:"leaf_type_id"`
			} `json:"content_info"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, fmt.Errorf("decode leaf info: %w", err)
	}
	if env.Data.ContentInfo.LeafTypeID == 0 {
		return 0, ErrNoDetailID
	}
	return env.Data.ContentInfo.LeafTypeID, nil
}

// ExerciseList fetches the question set behind a homework detail id.
func (c *Client) ExerciseList(ctx context.Context, course Course, detailID int64) ([]Question, error) {
	path := fmt.Sprintf("/mooc-api/v1/lms/exercise/get_exercise_list/%d/", detailID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return nil, err
	}
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Problems []Question `json:"problems"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode exercise list: %w", err)
	}
	if !env.Success {
		return nil, nil
	}
	return env.Data.Problems, nil
}

// WatchProgress fetches the reported watch state for one video.
func (c *Client) WatchProgress(ctx context.Context, course Course, userID, videoID int64) (WatchProgress, error) {
	path := fmt.Sprintf("/video-log/get_video_watch_progress/?cid=%d&user_id=%d&classroom_id=%d&video_type=video&vtype=rate&video_id=%d&snapshot=1",
		course.CourseID, userID, course.ClassroomID, videoID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return WatchProgress{}, err
	}
	var env struct {
		Data map[string]struct {
			Rate        FlexFloat `json:"rate"`
			WatchLength int64     `json:"watch_length"`
			Completed   int       `json:"completed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return WatchProgress{}, fmt.Errorf("decode watch progress (%v): %w", err, ErrNoProgress)
	}
	entry, ok := env.Data[itoa(videoID)]
	if !ok {
		return WatchProgress{}, fmt.Errorf("video %d: %w", videoID, ErrNoProgress)
	}
	return WatchProgress{
		Rate:        float64(entry.Rate),
		WatchLength: entry.WatchLength,
		Completed:   entry.Completed == 1,
	}, nil
}

// Heartbeat posts a batch of synthetic playback events and returns the raw
// response body so the caller can inspect it for a throttle marker.
func (c *Client) Heartbeat(ctx context.Context, course Course, batch []HeartbeatEvent) ([]byte, error) {
	payload := map[string]any{"heart_data": batch}
	return c.post(ctx, "/video-log/heartbeat/", payload, courseHeaders(course))
}

// SubmitAnswer posts one answer for one problem and returns the raw response
// body; throttle detection and structured parsing live in the submitter.
func (c *Client) SubmitAnswer(ctx context.Context, course Course, cctx ClassroomContext, problemID int64, answer []string) ([]byte, error) {
	payload := map[string]any{
		"classroom_id": cctx.ClassroomID,
		"problem_id":   problemID,
		"answer":       answer,
	}
	return c.post(ctx, "/mooc-api/v1/lms/exercise/problem_apply/", payload, courseHeaders(course))
}

// ArticleStatus reports whether the user finished reading an article leaf.
func (c *Client) ArticleStatus(ctx context.Context, course Course, articleID int64) (bool, error) {
	path := fmt.Sprintf("/mooc-api/v1/lms/learn/user_article_finish_status/%d/", articleID)
	body, err := c.get(ctx, path, courseHeaders(course))
	if err != nil {
		return false, err
	}
	var env struct {
		Data struct {
			IsFinished bool `json:"is_finished"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("decode article status: %w", err)
	}
	return env.Data.IsFinished, nil
}
