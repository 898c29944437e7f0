package router

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

func ExampleRouter_GetPing() {
	env := setupTestRouter(nil)
	defer env.server.Close()

	resp, err := http.Get(env.server.URL + "/ping")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)

	// Output:
	// Status Code: 200
}

func ExampleRouter_PostUserSignIn() {
	env := setupTestRouter(nil)
	defer env.server.Close()

	form := url.Values{}
	form.Set("email", "nobody@example.com")
	form.Set("password", "secret")

	resp, err := http.Post(
		env.server.URL+"/user/sign-in",
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Print(string(body))

	// Output:
	// Status Code: 401
	// {"status":"error","message":"Invalid credentials"}
}

func ExampleRouter_GetHome() {
	env := setupTestRouter(nil)
	defer env.server.Close()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(env.server.URL + "/")
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	fmt.Println("Status Code:", resp.StatusCode)
	fmt.Println("Location:", resp.Header.Get("Location"))

	// Output:
	// Status Code: 401
	// Location: /sign-in
}
