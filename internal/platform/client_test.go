package platform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, NewSession(map[string]string{"Cookie": "sessionid=abc"}))
}

var clientTestCourse = Course{Name: "Networks", ClassroomID: 101, UniversityID: 7, CourseID: 55}

func TestClientCourses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/api/web/courses/list" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"errcode":0,"data":{"list":[
			{"classroom_id":101,"course":{"id":55,"name":"Networks","university_id":7}},
			{"classroom_id":102,"course":{"id":56,"name":"Algorithms","university_id":7}}
		]}}`)
	})

	courses, err := client.Courses(context.Background())
	if err != nil {
		t.Fatalf("Courses() error = %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("len(courses) = %d; want 2", len(courses))
	}
	want := clientTestCourse
	if courses[0] != want {
		t.Errorf("courses[0] = %+v; want %+v", courses[0], want)
	}
}

func TestClientCourses_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errcode":403}`)
	})
	if _, err := client.Courses(context.Background()); err == nil {
		t.Error("Courses() expected error on nonzero errcode")
	}
}

func TestClientCourseHeaders(t *testing.T) {
	var gotCookie, gotClassroom string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotClassroom = r.Header.Get("classroom-id")
		io.WriteString(w, `{"errcode":0,"data":{"id":101,"course_id":55,"course_sign":"sig","free_sku_id":9}}`)
	})

	cctx, err := client.ClassroomInfo(context.Background(), clientTestCourse)
	if err != nil {
		t.Fatalf("ClassroomInfo() error = %v", err)
	}
	if cctx.CourseSign != "sig" || cctx.FreeSkuID != 9 {
		t.Errorf("cctx = %+v", cctx)
	}
	if !strings.HasPrefix(gotCookie, "sessionid=abc; ") {
		t.Errorf("Cookie = %q; want session cookie preserved before course cookie", gotCookie)
	}
	if !strings.Contains(gotCookie, "classroom_id=101") || !strings.Contains(gotCookie, "uv_id=7") {
		t.Errorf("Cookie = %q; missing course scoping", gotCookie)
	}
	if gotClassroom != "101" {
		t.Errorf("classroom-id header = %q; want 101", gotClassroom)
	}
}

func TestClientCourseLeaves(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"course_chapter":[
			{"section_leaf_list":[
				{"id":1,"name":"Intro video","leaf_type":0,"leaf_list":[]},
				{"leaf_list":[
					{"id":2,"name":"Reading","leaf_type":3},
					{"id":3,"name":"Quiz 1","leaf_type":6,"chapter_id":10,"score_deadline":1700000000000}
				]}
			]}
		]}}`)
	})

	leaves, err := client.CourseLeaves(context.Background(), clientTestCourse, ClassroomContext{CourseSign: "sig"})
	if err != nil {
		t.Fatalf("CourseLeaves() error = %v", err)
	}
	if len(leaves) != 3 {
		t.Fatalf("len(leaves) = %d; want 3", len(leaves))
	}
	if leaves[0].LeafType != LeafVideo || leaves[0].Name != "Intro video" {
		t.Errorf("leaves[0] = %+v; want inlined section leaf", leaves[0])
	}
	if leaves[2].LeafType != LeafHomework || leaves[2].ChapterID != 10 {
		t.Errorf("leaves[2] = %+v", leaves[2])
	}
}

func TestClientLeafTypeID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"content_info":{"leaf_type_id":777}}}`)
	})

	id, err := client.LeafTypeID(context.Background(), clientTestCourse, 3)
	if err != nil {
		t.Fatalf("LeafTypeID() error = %v", err)
	}
	if id != 777 {
		t.Errorf("LeafTypeID() = %d; want 777", id)
	}
}

func TestClientLeafTypeID_Unresolved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"data":{}}`)
	})

	_, err := client.LeafTypeID(context.Background(), clientTestCourse, 3)
	if !errors.Is(err, ErrNoDetailID) {
		t.Errorf("LeafTypeID() error = %v; want ErrNoDetailID", err)
	}
}

func TestClientWatchProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("video_id") != "12" || q.Get("classroom_id") != "101" {
			t.Errorf("query = %v", q)
		}
		io.WriteString(w, `{"data":{"12":{"rate":"0.42","watch_length":336,"completed":0}}}`)
	})

	p, err := client.WatchProgress(context.Background(), clientTestCourse, 900, 12)
	if err != nil {
		t.Fatalf("WatchProgress() error = %v", err)
	}
	if p.Rate != 0.42 || p.WatchLength != 336 || p.Completed {
		t.Errorf("WatchProgress() = %+v", p)
	}
}

func TestClientWatchProgress_MissingEntry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})

	_, err := client.WatchProgress(context.Background(), clientTestCourse, 900, 12)
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("WatchProgress() error = %v; want ErrNoProgress", err)
	}
}

func TestClientWatchProgress_UndecodableBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway error</html>")
	})

	_, err := client.WatchProgress(context.Background(), clientTestCourse, 900, 12)
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("WatchProgress() error = %v; want ErrNoProgress", err)
	}
}

func TestClientExerciseList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mooc-api/v1/lms/exercise/get_exercise_list/777/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		io.WriteString(w, `{"success":true,"data":{"problems":[
			{"id":1,"problem_id":11,"max_retry":2,"user":{"my_count":1,"is_right":false,"answer":"A"},
			 "content":{"LibraryID":"lib-1","Version":"1","Options":[{"key":"A"},{"key":"B"}]}}
		]}}`)
	})

	questions, err := client.ExerciseList(context.Background(), clientTestCourse, 777)
	if err != nil {
		t.Fatalf("ExerciseList() error = %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len(questions) = %d; want 1", len(questions))
	}
	q := questions[0]
	if q.ProblemID != 11 || q.User.MyCount != 1 || len(q.User.Answer) != 1 {
		t.Errorf("question = %+v", q)
	}
}
