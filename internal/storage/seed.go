package storage

import "github.com/NeroQue/onboarding-flow-backend/internal/models"

// SeedCourse is shown on first start when nothing has been saved yet
func SeedCourse() models.Course {
	return models.Course{
		ID:   "demo-1",
		Name: "Welcome to the Team",
		Steps: []models.Step{
			{
				ID:          "s1",
				Title:       "Meet the Founder",
				Description: "A quick introduction to our vision, mission, and culture.",
				Body:        models.VideoBody{MediaType: models.MediaYouTube, VideoURL: "jNQXAC9IVRw"},
			},
			{
				ID:          "s2",
				Title:       "Sign the Contract",
				Description: "Please review the attached PDF and confirm you have signed the digital copy sent to your email.",
				Body:        models.ActionBody{Label: "I have signed the contract"},
			},
			{
				ID:          "s3",
				Title:       "Download Handbook",
				Description: "Our culture handbook contains everything you need to know about benefits and holidays.",
				Body:        models.DownloadBody{FileName: "Employee_Handbook_2024.pdf"},
			},
		},
	}
}
