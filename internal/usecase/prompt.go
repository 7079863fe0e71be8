package usecase

import (
	"fmt"
	"strings"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

// scoringSystemPrompt frames the provider as a recruiting expert; the user
// prompt carries the evaluation contract.
const scoringSystemPrompt = "You are an AI recruiter Expert."

// buildScoringPrompt renders the deterministic evaluation prompt. The 40/35/25
// weighting and the recommendation bands are a business rule shared with the
// consumers of score_global; do not reword them.
func buildScoringPrompt(cv domain.ResumeData, offer domain.JobOffer) string {
	summary := cv.Summary
	if summary == "" {
		summary = "Non spécifié"
	}

	educations := make([]string, 0, len(cv.Education))
	for _, edu := range cv.Education {
		educations = append(educations, fmt.Sprintf("%s en %s - %s (%s)", edu.Degree, orUnspecified(edu.FieldOfStudy), edu.Institution, orUnspecified(edu.Year)))
	}
	experiences := make([]string, 0, len(cv.WorkExperience))
	for _, exp := range cv.WorkExperience {
		period := strings.TrimSpace(exp.StartDate + " - " + exp.EndDate)
		if period == "-" {
			period = "durée non précisée"
		}
		experiences = append(experiences, fmt.Sprintf("%s chez %s (%s)", exp.Position, exp.Company, period))
	}
	projects := make([]string, 0, len(cv.Projects))
	for _, proj := range cv.Projects {
		projects = append(projects, fmt.Sprintf("%s: %s", proj.Name, orUnspecified(proj.Description)))
	}
	languages := make([]string, 0, len(cv.Languages))
	for _, lang := range cv.Languages {
		languages = append(languages, fmt.Sprintf("%s (%s)", lang.Language, orUnspecified(lang.Level)))
	}

	return fmt.Sprintf(`Tu es un expert en recrutement. Analyse ce CV par rapport à cette offre d'emploi et fournis un scoring détaillé en français.

=== OFFRE D'EMPLOI ===
- Poste : %s
- Compétences requises : %s
- Expérience minimale : %d ans
- Niveau d'étude requis : %s
- Description du métier : %s

=== CV DU CANDIDAT ===
Résumé : %s
Compétences techniques : %s
Outils : %s
Soft skills : %s
Certifications : %s
Formations : %s
Expériences : %s
Projets récents : %s
Langues : %s

=== MISSION ===
Analyse la correspondance entre le CV et l'offre d'emploi selon 3 critères principaux:
1. **Correspondance des compétences** (0-100): Analyse des compétences techniques et outils
2. **Correspondance de l'expérience** (0-100): Analyse des années d'expérience et pertinence des postes
3. **Correspondance du diplôme** (0-100): Analyse du niveau d'études et domaine

Calcule ensuite un **score global** pondéré:
- Compétences: 40%%
- Expérience: 35%%
- Diplôme: 25%%

RÈGLES DE SCORING:
- **EXCELLENT** (85-100): Profil idéal, correspondance exceptionnelle
- **BON** (70-84): Très bon profil, forte correspondance
- **MOYEN** (50-69): Profil acceptable, correspondance partielle
- **FAIBLE** (0-49): Profil inadapté, faible correspondance

ANALYSE DES COMPÉTENCES:
- Compare les compétences requises avec competences, tools et soft_skills du CV
- Bonus si compétences additionnelles pertinentes
- Pénalité si compétences critiques manquantes

ANALYSE DE L'EXPÉRIENCE:
- Compare min_experience (années requises) avec work_experience du CV
- Évalue la pertinence des postes occupés
- Analyse la progression de carrière

ANALYSE DU DIPLÔME:
- Compare education_level requis avec education du CV
- Évalue la pertinence du field_of_study
- Considère les certifications pertinentes

La justification doit être en français, professionnelle et factuelle.
Les strengths et weaknesses doivent être spécifiques et basés sur le CV.
Les missing_skills doivent lister les compétences requises mais absentes du CV.

Réponds UNIQUEMENT avec le JSON, rien d'autre.`,
		offer.JobTitle,
		strings.Join(offer.RequiredSkills, ", "),
		offer.MinExperience,
		offer.EducationLevel,
		offer.Description,
		summary,
		strings.Join(cv.Competences, ", "),
		strings.Join(cv.Tools, ", "),
		strings.Join(cv.SoftSkills, ", "),
		strings.Join(cv.Certifications, ", "),
		strings.Join(educations, "; "),
		strings.Join(experiences, "; "),
		strings.Join(projects, "; "),
		strings.Join(languages, ", "),
	)
}

func orUnspecified(s string) string {
	if s == "" {
		return "non précisé"
	}
	return s
}
